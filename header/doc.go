// Package header provides typed projections of the SIP header fields a registrar consumes from a
// REGISTER request: the topmost Via hop, the digest credentials of the Authorization header,
// a single Contact address and the Expires header.
//
// The projections are produced by the surrounding SIP stack. The textual forms accepted by
// [ParseViaHop], [ParseDigestCredentials], [ParseContact] and [ParseExpires] are the header values
// as they appear on the wire, without the header name, which lets integrations that only have
// the raw header values (for example the HTTP surface of the registrar daemon) build them.
//
// All types follow the same method set: String, Format, Clone, Equal, IsValid, MarshalText,
// UnmarshalText and LogValue. [DigestCredentials.LogValue] never renders the digest response.
package header

//go:generate go tool errtrace -w .
