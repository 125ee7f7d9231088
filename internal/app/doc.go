// Package app is tanker's composition root.
//
// Run loads configuration, opens the logger and the durable key store, builds
// the HTTP and geocoding clients and the four stores, restores the persisted
// session, optionally signs in with credentials from the command line, starts
// the background poller and finally hands control to the UI. Pending session
// writes are flushed before Run returns.
//
// # Polling
//
// The Poller refreshes what the signed-in role looks at: the user record and
// address book for everyone, then the customer's own requests or the
// provider's pool of unclaimed requests. Signed-out sessions are skipped.
//
// Failed refreshes back off exponentially from the poll interval (doubling
// per consecutive failure, capped at 30 seconds) and reset on the first
// success. Trigger wakes the loop immediately; the UI calls it whenever a
// screen gains focus.
//
//	Run()
//	 ├─> config.Load()          TOML + .env + TANKER_* overrides
//	 ├─> logger.New()           zap JSON lines to the log file
//	 ├─> keystore.Open()        file or sqlite
//	 ├─> session.RestoreSession()
//	 ├─> Poller.Start()         background refresh loop
//	 └─> ui.Run()               blocks until quit
package app
