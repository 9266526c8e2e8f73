// Package repositories implements the SQLite send log archive.
//
// Every confirmed send becomes a row in send_runs and each line of its log a row in
// send_log_lines, keyed by (run_id, position). The archive is a local audit trail:
// nothing is read back into a send, and the campaign controller treats write failures
// as warnings.
//
// Key Implementations:
//   - [SendLogRepository] : run creation, line appends, completion, history queries
//
// Positions are allocated inside the append transaction by [NextPosition], so lines
// read back in delivery order even if callers disagree about numbering.
package repositories
