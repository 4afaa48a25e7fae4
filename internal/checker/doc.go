// Package checker holds the network-facing building blocks of a link scan.
//
// Architecture overview:
//
//   - NormalizeInput and ParseTarget turn a bare URL or a fetch command
//     (curl, wget, ...) into an immutable Target.
//   - Probes answer "is anything there, and what does it say?" per protocol:
//     HTTPProber (HEAD with one GET fallback), TLSInspector (certificate on
//     port 443), FTPProber (greeting and anonymous login) and SSHProber
//     (identification string and host key, no authentication).
//   - DomainIntel resolves the hostname and fetches registration data over
//     RDAP. Both are shared by every protocol.
//   - AnalyzeLexical and InspectContent are pure functions over the input
//     string and the fetched HTML.
//   - Runner coordinates batch scans with concurrency and rate limiting for
//     the CLI.
//
// Probes never return errors. Failures are reported as unreachable or
// unavailable results and logged at debug level, so one failing sub-check
// never aborts a scan.
package checker
