// Package extract turns raw alert text into ticket fields.
//
// Core types:
//   - Result: title, description, and labels pulled from a message
//   - Service: the extraction interface the pipeline calls
//   - LLMService: Service backed by a completion client
//   - Mock: scripted Service for tests
//
// Extraction and inference are separate calls on purpose: extraction is
// a first pass over the raw message, inference is a follow-up that fills
// only the fields the completeness check reported missing.
package extract
