// Package artifact stores per-run outputs on disk.
//
// Every pipeline run gets a directory under <base>/runs/<runID>/artifacts/
// holding the standard artifacts it produced: the inbound alert, the
// extracted ticket info, the created ticket, and the final response.
// Large text artifacts are gzipped transparently.
//
//	mgr := artifact.NewManager(artifact.Config{BaseDir: ".alertflow"})
//	mgr.SaveJSON(runID, artifact.NameTicket, created)
//	data, err := mgr.Load(runID, artifact.NameResponse)
//
// The Lifecycle type handles retention: old runs are packed into
// monthly tar.gz archives and eventually deleted.
package artifact
