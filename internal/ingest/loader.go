// Package ingest assembles the claim pool from the titles register and the
// per-kind GeoJSON boundary layers, or from a prepared pool file.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ppiankov/claimscope/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ErrNoSource is returned when neither a pool file nor a titles register is configured
var ErrNoSource = errors.New("no pool file or titles register configured")

// PoolFile is the on-disk shape of a prepared pool
type PoolFile struct {
	Applications []model.Application `yaml:"applications" json:"applications"`
}

// Assemble joins title rows with their boundary layer.
// The right type picks the layer; a kind without a layer yields an empty boundary.
func Assemble(titles []TitleRow, layers map[model.ClaimKind]Boundaries) []model.Application {
	apps := make([]model.Application, 0, len(titles))
	for _, row := range titles {
		claim := model.Claim{
			ClaimantID: row.ClaimantID,
			ClaimID:    row.ClaimID,
			Kind:       row.Kind,
			Boundary:   []model.Ring{},
		}
		if row.LocalityID != "" {
			claim.LocalityID = model.Locality(row.LocalityID)
		}
		if layer, ok := layers[row.Kind]; ok {
			if rings, ok := layer[row.Key()]; ok {
				claim.Boundary = rings
			}
		}

		apps = append(apps, model.Application{
			Claim:        claim,
			Applicant:    row.Applicant,
			Admin:        row.Admin,
			AreaHectares: row.AreaHectares,
			Status:       row.Status,
		})
	}
	return apps
}

// LoadPoolFile reads a YAML (or JSON) document with an applications list
func LoadPoolFile(path string) ([]model.Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool file: %w", err)
	}

	var doc PoolFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pool file: %w", err)
	}

	for i, app := range doc.Applications {
		if app.Claim.ClaimantID == "" || app.Claim.ClaimID == "" {
			return nil, fmt.Errorf("pool file entry %d: claimant_id and claim_id are required", i)
		}
		if app.Claim.Boundary == nil {
			doc.Applications[i].Claim.Boundary = []model.Ring{}
		}
	}

	return doc.Applications, nil
}

// Load builds the application list described by cfg.
// A pool file wins; otherwise the titles register and every configured layer are read concurrently.
func Load(ctx context.Context, cfg model.DataConfig, logger *zap.Logger) ([]model.Application, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PoolFile != "" {
		apps, err := LoadPoolFile(cfg.PoolFile)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded pool file", zap.String("path", cfg.PoolFile), zap.Int("applications", len(apps)))
		return apps, nil
	}
	if cfg.TitlesCSV == "" {
		return nil, ErrNoSource
	}

	var (
		titles []TitleRow
		mu     sync.Mutex
		layers = make(map[model.ClaimKind]Boundaries)
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f, err := os.Open(cfg.TitlesCSV)
		if err != nil {
			return fmt.Errorf("failed to open titles register: %w", err)
		}
		defer f.Close()

		rows, err := LoadTitles(f, logger)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.TitlesCSV, err)
		}
		titles = rows
		return nil
	})

	for kind, path := range cfg.Boundaries.Layers() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s boundaries: %w", kind, err)
			}
			defer f.Close()

			b, err := LoadBoundaries(f, kind)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			mu.Lock()
			layers[kind] = b
			mu.Unlock()
			logger.Debug("loaded boundary layer", zap.String("kind", string(kind)), zap.Int("claims", len(b)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	apps := Assemble(titles, layers)
	logger.Info("assembled pool",
		zap.Int("titles", len(titles)),
		zap.Int("layers", len(layers)),
		zap.Int("applications", len(apps)))
	return apps, nil
}
