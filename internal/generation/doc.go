// Package generation defines the boundary between the application core and
// external AI/LLM services. It abstracts the details of LLM API integration
// (Gemini), allowing tasks to produce document summaries without coupling
// to a specific external service.
package generation
