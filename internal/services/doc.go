// Package services talks to the outreach backend.
//
// # Raw Client
//
// [APIService] performs HTTP exchanges against the backend base URL: JSON
// posts, streaming posts whose body is handed back unread, and multipart
// uploads. Buffered exchanges honor the configured request timeout; streams
// never do.
//
// # Typed Exchanges
//
// [OutreachService] maps the four backend operations onto configured paths:
//   - FilterPlaylists: query + playlists → matching playlist ids
//   - GeneratePreview: track + description + representative playlist → subject, bodies, variations
//   - SendEmails: capped recipients + content → event stream
//   - ParsePlaylists: spreadsheet upload → playlists
//
// # Send Stream
//
// The send response is a sequence of frames separated by a blank line, each
// with optional `event:` and one or more `data:` lines. [FrameParser] keeps a
// carry-over buffer so frames split across reads are surfaced exactly once.
// [FrameReader] drives the parser from a live body with an optional idle timeout.
//
// # Error Handling
//
//   - [ServiceError] : the backend answered with a failure, message shown verbatim
//   - [shared.ErrTransport] : the request or stream failed before an answer
//   - [shared.ErrValidation] : the request was rejected locally
package services
