// Package qrcode renders otpauth:// enrollment URIs as QR code images so that
// authenticator apps can scan them.
//
// Generate returns PNG bytes; GenerateBase64Image returns a data URI that can
// be embedded directly in an HTML page or a JSON response. The image only ever
// encodes the URI it is given; callers decide whether to show it.
//
//	img, err := qrcode.GenerateBase64Image(enrollment.URI, 256)
//	if err != nil {
//	    return err
//	}
//	// <img src="{{ .QRCode }}">
package qrcode
