// Package ui is tanker's Bubble Tea terminal interface.
//
// The UI never owns data. Each tick it takes read-only snapshots of the four
// stores (session, location, customer requests, provider pool) and renders
// them; every intent (sign in, order water, confirm a delivery, manage
// addresses, accept or decline a request) runs the matching store operation
// as a tea.Cmd so the screen stays interactive while the network call is in
// flight.
//
// # Views
//
//   - Requests (customers): the customer's own requests, a detail panel for the
//     opened request, the new-request form and delivery confirmation.
//   - Addresses: the address book; the selected row becomes the delivery
//     address, and new addresses are geocoded before saving.
//   - Pool (providers): unclaimed requests ranked by distance from the
//     selected address and limited to the configured radius.
//   - Activity: the tail of tanker's own JSON log via internal/logtail.
//
// Switching views asks the background poller for an immediate refresh.
//
// # Themes
//
// T cycles the palette; the choice is stored in the key store under "theme"
// and restored on the next start.
package ui
