package queue

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// FrameMessage is the wire shape of a frames_queue entry (§6): the JPEG
// payload travels base64-encoded inside a JSON envelope so the queue holds
// uniform text-safe payloads.
type FrameMessage struct {
	CameraID string  `json:"camera_id"`
	Ts       float64 `json:"ts"`
	FrameB64 string  `json:"frame_b64"`
}

func EncodeFrame(cameraID string, ts time.Time, jpeg []byte) ([]byte, error) {
	msg := FrameMessage{
		CameraID: cameraID,
		Ts:       float64(ts.UnixNano()) / 1e9,
		FrameB64: base64.StdEncoding.EncodeToString(jpeg),
	}
	return json.Marshal(msg)
}

func DecodeFrame(raw []byte) (FrameMessage, []byte, error) {
	var msg FrameMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return FrameMessage{}, nil, err
	}
	jpeg, err := base64.StdEncoding.DecodeString(msg.FrameB64)
	if err != nil {
		return FrameMessage{}, nil, err
	}
	return msg, jpeg, nil
}

// DetectionMessage is the wire shape of a detections_queue entry (§6).
type DetectionMessage struct {
	TenantID     string   `json:"tenant_id"`
	CameraID     string   `json:"camera_id"`
	ZoneID       string   `json:"zone_id"`
	TrackID      int      `json:"track_id"`
	Event        string   `json:"event"`
	Ts           string   `json:"ts"`
	DwellSeconds *float64 `json:"dwell,omitempty"`
}

func EncodeDetection(m DetectionMessage) ([]byte, error) {
	return json.Marshal(m)
}

func DecodeDetection(raw []byte) (DetectionMessage, error) {
	var m DetectionMessage
	err := json.Unmarshal(raw, &m)
	return m, err
}
