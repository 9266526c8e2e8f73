// Package tasks orchestrates the operator workflow over one playlist snapshot.
//
// # Controllers
//
// A [Session] owns the [models.PlaylistSet] and the controllers acting on it:
//
//  1. [FilterController.Apply] : semantic filter delegated to the backend
//     - Blank query clears the filter without a network call
//     - Matching ids replace the visible set; failures leave it untouched
//
//  2. [CampaignController] : preview, edit, capped confirmation, streamed send
//     - Idle → PreviewPending → PreviewReady → SendConfirming → Sending → Idle
//     - Validation happens before any network call
//     - The send is never retried and cannot be cancelled once started
//
//  3. [Ingestor.Ingest] : spreadsheet upload parsed by the backend
//     - Replaces the snapshot and discards any campaign not yet sending
//
// # Busy State
//
// Filter, preview, send and ingest each hold a [Guard]. A trigger that finds its
// guard taken returns [shared.ErrBusy] immediately.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel using select
// with default, so a slow reader never stalls a send.
//
// # Send Log Archive
//
// The optional [SendRecorder] (repositories.SendLogRepository) receives one run
// per confirmed send and every log line. Archive errors are logged and ignored.
package tasks
