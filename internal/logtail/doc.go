// Package logtail reads the tail of tanker's JSON log file for the Activity
// view.
//
// Read keeps a ring buffer of the last N lines so large files are scanned once
// with O(N) memory. Parse and Entries decode the zap JSON lines into Entry
// values; lines that are not JSON survive as plain messages so a partially
// written or foreign line never hides the rest of the tail.
//
//	entries, err := logtail.ReadEntries(cfg.LogPath, 200)
//	for _, e := range entries {
//		fmt.Println(logtail.Format(e))
//	}
package logtail
