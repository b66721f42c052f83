// Package authsync reconciles an external identity provider's asynchronous
// authentication event stream with a locally cached application profile, and
// exposes a small race-safe facade (sign-in, sign-up, sign-out, password
// reset, profile refresh) to the rest of the application.
//
// Event pipeline:
//   - Provider events (signed in, token refreshed, signed out) flow through a
//     single dispatcher goroutine that owns every write to the SessionStore,
//     the TokenStore, and the ProfileCache. Each transition bumps a
//     generation counter.
//   - Profile lookups run asynchronously and are tagged with the generation
//     current at issue time. A result is applied only when its generation and
//     target user still match the live state, so a fetch issued for a
//     superseded or signed-out session can never overwrite newer state.
//
// Construction:
//   - NewManager wires an IdentityProvider, a ProfileService, and optional
//     overrides (logger, clock, token store, event source). There is no
//     ambient singleton; consumers hold the Manager they were given.
package authsync
