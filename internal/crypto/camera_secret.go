package crypto

import (
	"encoding/json"
	"fmt"
)

// sealedBlob is the on-the-wire envelope stored in a TEXT column: the
// AAD-bound nonce/ciphertext/tag triple GCM produces, reassembled on read.
// This mirrors the two-layer DEK-wrap scheme the VMS credential store uses
// for NVR credentials, repurposed here for a single secret per camera: the
// RTSP URL, which commonly embeds `user:pass@host`.
type sealedBlob struct {
	Nonce      []byte `json:"n"`
	Ciphertext []byte `json:"c"`
	Tag        []byte `json:"t"`
}

func seal(key, plaintext, aad []byte) (string, error) {
	nonce, ciphertext, tag, err := EncryptGCM(key, plaintext, aad)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(sealedBlob{Nonce: nonce, Ciphertext: ciphertext, Tag: tag})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unseal(key []byte, blob string, aad []byte) ([]byte, error) {
	var b sealedBlob
	if err := json.Unmarshal([]byte(blob), &b); err != nil {
		return nil, fmt.Errorf("malformed sealed blob: %w", err)
	}
	return DecryptGCM(key, b.Nonce, b.Ciphertext, b.Tag, aad)
}

func cameraAAD(tenantID, cameraID string) []byte {
	return []byte(tenantID + ":" + cameraID)
}

// SealRTSPURL generates a fresh per-camera DEK, encrypts rtspURL under it,
// then wraps the DEK with the keyring's active master key. Both returned
// strings are opaque JSON envelopes, stored verbatim in the cameras table
// (rtsp_url, dek_wrapped).
func SealRTSPURL(kr *Keyring, tenantID, cameraID, rtspURL string) (ciphertext, dekWrapped string, err error) {
	aad := cameraAAD(tenantID, cameraID)

	dek, err := GenerateDEK()
	if err != nil {
		return "", "", err
	}

	ciphertext, err = seal(dek, []byte(rtspURL), aad)
	if err != nil {
		return "", "", err
	}

	kid, nonce, dekCiphertext, tag, err := kr.WrapDEK(dek, aad)
	if err != nil {
		return "", "", err
	}
	wrapped, err := json.Marshal(struct {
		KID string `json:"kid"`
		sealedBlob
	}{KID: kid, sealedBlob: sealedBlob{Nonce: nonce, Ciphertext: dekCiphertext, Tag: tag}})
	if err != nil {
		return "", "", err
	}

	return ciphertext, string(wrapped), nil
}

// OpenRTSPURL reverses SealRTSPURL: unwrap the DEK with the master keyring,
// then decrypt the RTSP URL ciphertext with it.
func OpenRTSPURL(kr *Keyring, tenantID, cameraID, ciphertext, dekWrapped string) (string, error) {
	aad := cameraAAD(tenantID, cameraID)

	var wrapped struct {
		KID string `json:"kid"`
		sealedBlob
	}
	if err := json.Unmarshal([]byte(dekWrapped), &wrapped); err != nil {
		return "", fmt.Errorf("malformed wrapped DEK: %w", err)
	}

	dek, err := kr.UnwrapDEK(wrapped.KID, wrapped.Nonce, wrapped.Ciphertext, wrapped.Tag, aad)
	if err != nil {
		return "", err
	}

	plaintext, err := unseal(dek, ciphertext, aad)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
