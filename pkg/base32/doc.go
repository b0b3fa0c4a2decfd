// Package base32 implements the RFC 4648 Base32 alphabet (A-Z, 2-7) without padding,
// the encoding authenticator apps expect for shared TOTP secrets.
//
// Encode never emits "=" padding. Decode is lenient: it accepts lower-case input,
// strips trailing padding and silently skips symbols outside the alphabet, so that
// secrets typed by hand with spaces or dashes still decode.
//
// # Usage
//
//	s := base32.Encode(secret) // "JBSWY3DPEHPK3PXP"
//	b := base32.Decode("jbsw y3dp ehpk 3pxp")
package base32
