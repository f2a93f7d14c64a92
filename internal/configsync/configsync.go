// Package configsync loads the declarative tenant/camera/zone/threshold
// tree (§4.G) from YAML and syncs it into storage: upsert tenants,
// cameras and zones, replace each zone's thresholds atomically, and
// commit the whole sync as one transaction — any failure rolls the
// entire sync back. Camera RTSP URLs are sealed at rest via
// internal/crypto before the upsert ever sees plaintext (§"Supplemented
// features").
package configsync

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/technosupport/zoneguard/internal/crypto"
	"github.com/technosupport/zoneguard/internal/data"
)

// Tree is the declarative config document's root shape (§4.G).
type Tree struct {
	Tenants []TenantNode `yaml:"tenants"`
}

type TenantNode struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name"`
	Cameras []CameraNode `yaml:"cameras"`
}

type CameraNode struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	Location string     `yaml:"location"`
	RTSPURL  string     `yaml:"rtsp_url"`
	FPS      int        `yaml:"fps"`
	Zones    []ZoneNode `yaml:"zones"`
}

type ZoneNode struct {
	ID                  string          `yaml:"id"`
	Name                string          `yaml:"name"`
	Polygon             [][]float64     `yaml:"polygon"`
	Metrics             []string        `yaml:"metrics"`
	GhostTimeoutMinutes *int            `yaml:"ghost_timeout_minutes"`
	Thresholds          []ThresholdNode `yaml:"thresholds"`
}

type ThresholdNode struct {
	Metric    string  `yaml:"metric"`
	Level     string  `yaml:"level"`
	Threshold float64 `yaml:"threshold"`
}

// DefaultGhostTimeoutMinutes mirrors the Zone data model's default (§2).
const DefaultGhostTimeoutMinutes = 60

func Parse(raw []byte) (Tree, error) {
	var tree Tree
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Tree{}, fmt.Errorf("parse config yaml: %w", err)
	}
	return tree, nil
}

func Load(path string) (Tree, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tree{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(raw)
}

// The store interfaces below are what Syncer needs from the data layer,
// narrowed so the whole sync can run against either data.*Model
// repositories bound to one *sql.Tx (see runner.go) or a test double.
type TenantStore interface {
	Upsert(ctx context.Context, t data.Tenant) error
}

type CameraStore interface {
	Upsert(ctx context.Context, c data.Camera) error
}

type ZoneStore interface {
	Upsert(ctx context.Context, z data.Zone) error
}

type ThresholdStore interface {
	ReplaceForZone(ctx context.Context, zoneID string, thresholds []data.ZoneThreshold) error
}

// Keyring seals a camera's RTSP URL before it is persisted.
type Keyring interface {
	Seal(tenantID, cameraID, rtspURL string) (ciphertext, dekWrapped string, err error)
}

type keyringAdapter struct{ kr *crypto.Keyring }

func (k keyringAdapter) Seal(tenantID, cameraID, rtspURL string) (string, string, error) {
	return crypto.SealRTSPURL(k.kr, tenantID, cameraID, rtspURL)
}

func NewKeyringAdapter(kr *crypto.Keyring) Keyring {
	return keyringAdapter{kr: kr}
}

// Syncer applies a parsed Tree to storage.
type Syncer struct {
	Tenants    TenantStore
	Cameras    CameraStore
	Zones      ZoneStore
	Thresholds ThresholdStore
	Keyring    Keyring
}

// Sync applies every tenant/camera/zone/threshold in the tree. Callers
// are expected to pass stores backed by the same *sql.Tx so a failure
// partway through rolls the whole sync back (§4.G); this function itself
// has no transaction boundary opinion.
func (s *Syncer) Sync(ctx context.Context, tree Tree) error {
	for _, tn := range tree.Tenants {
		if err := s.Tenants.Upsert(ctx, data.Tenant{ID: tn.ID, Name: tn.Name}); err != nil {
			return fmt.Errorf("upsert tenant %s: %w", tn.ID, err)
		}

		for _, cn := range tn.Cameras {
			ciphertext, dekWrapped, err := s.Keyring.Seal(tn.ID, cn.ID, cn.RTSPURL)
			if err != nil {
				return fmt.Errorf("seal rtsp url for camera %s: %w", cn.ID, err)
			}
			cam := data.Camera{
				ID: cn.ID, TenantID: tn.ID, Name: cn.Name, Location: cn.Location,
				RTSPURL: ciphertext, DEKWrapped: dekWrapped, FPS: cn.FPS,
			}
			if err := s.Cameras.Upsert(ctx, cam); err != nil {
				return fmt.Errorf("upsert camera %s: %w", cn.ID, err)
			}

			for _, zn := range cn.Zones {
				zone := data.Zone{
					ID: zn.ID, TenantID: tn.ID, CameraID: cn.ID, Name: zn.Name,
					Polygon: toPoints(zn.Polygon), Metrics: zn.Metrics,
					GhostTimeoutMinutes: ghostTimeout(zn.GhostTimeoutMinutes),
				}
				if err := s.Zones.Upsert(ctx, zone); err != nil {
					return fmt.Errorf("upsert zone %s: %w", zn.ID, err)
				}

				thresholds := make([]data.ZoneThreshold, len(zn.Thresholds))
				for i, tnode := range zn.Thresholds {
					thresholds[i] = data.ZoneThreshold{
						ZoneID: zn.ID, Metric: tnode.Metric, Level: tnode.Level, Threshold: tnode.Threshold,
					}
				}
				if err := s.Thresholds.ReplaceForZone(ctx, zn.ID, thresholds); err != nil {
					return fmt.Errorf("replace thresholds for zone %s: %w", zn.ID, err)
				}
			}
		}
	}
	return nil
}

func toPoints(raw [][]float64) []data.Point {
	pts := make([]data.Point, len(raw))
	for i, p := range raw {
		if len(p) != 2 {
			continue
		}
		pts[i] = data.Point{X: p[0], Y: p[1]}
	}
	return pts
}

func ghostTimeout(v *int) int {
	if v == nil {
		return DefaultGhostTimeoutMinutes
	}
	return *v
}
