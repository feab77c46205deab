// Package qa answers questions from ranked transcript context.
//
// Ranked chunks become numbered sources ([1], [2], ...) that carry a locator
// back to the transcript segment and time range they came from. The sources
// are trimmed to a token budget, rendered into a prompt that restricts the
// model to the supplied context, and the reply is parsed for the answer and
// the sources it cited. An empty context short-circuits to "No relevant
// context found" without calling the model.
package qa
