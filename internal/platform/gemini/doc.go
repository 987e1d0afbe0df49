// Package gemini provides an implementation of the
// generation.SummaryGenerator interface that uses Google's Gemini API to
// summarize document content.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's domain logic to Google's external Gemini AI
// service. It renders prompts from a template, validates API responses,
// retries transient failures with exponential backoff, and translates API
// failures into the generation package's error types.
package gemini
