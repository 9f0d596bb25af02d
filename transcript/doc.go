// Package transcript provides recording and management of pipeline run
// transcripts.
//
// Core types:
//   - Transcript: A recorded run with metadata and turns
//   - Turn: A single step in a run (node execution or model exchange)
//   - Manager: Interface for transcript lifecycle management
//   - FileStore: File-based transcript storage implementation
//   - Viewer: Transcript display and export
//
// Example usage:
//
//	store, err := transcript.NewFileStore(transcript.StoreConfig{
//	    BaseDir: ".alertflow",
//	})
//	err = store.StartRun("2026-01-15-alert-x7k2m9", transcript.RunMetadata{
//	    Channel: "servicecore-mobile-errors",
//	    Source:  "datadog",
//	})
//	err = store.RecordTurn("2026-01-15-alert-x7k2m9", transcript.Turn{
//	    Role:    "assistant",
//	    Content: `{"title": "NullPointerException in checkout"}`,
//	})
package transcript
