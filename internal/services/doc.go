// Package services implements the transport adapters for the VB6 -> .NET conversion backend.
//
// # Converter Interface
//
// [Converter] is the typed client surface: submit, status poll, download, and
// health, plus the [Stream] event subscription. [ConverterService] implements
// it against the FastAPI backend.
//
// # Event Stream
//
// GET /stream is a Server-Sent Events channel. The backend emits named events
// (state_update, log, ping) whose JSON payloads decode into [Event]. Events
// are delivered in server-send order; no client-side reordering happens here
// or anywhere downstream. Malformed payloads are reported on the stream's
// error channel and dropped.
//
// # Raw Passthrough
//
// [APIService] keeps a thin untyped GET/POST surface for the `convx api`
// debugging commands.
//
// # Error Handling
//
// Adapters return typed errors from the shared package:
//   - [shared.ErrNetwork] : connection-level failure
//   - [shared.ErrValidation] : backend rejected the input (structured error body)
//   - [shared.ErrProtocol] : response or event payload could not be parsed
//   - [shared.ErrStream] : the event channel itself failed
//   - [shared.ErrConversionNotFound] : unknown conversion id
//
// Adapter failures never panic into callers; the session package consumes
// them and decides whether the active session fails.
package services
