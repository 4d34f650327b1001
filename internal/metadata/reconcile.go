// Package metadata reconciles a desired key/value set against an asset's
// remote metadata.
package metadata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/metrics"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/models"
)

// Mode selects what happens to remote keys absent from the desired set.
type Mode int

const (
	// Additive creates and updates keys but never deletes.
	Additive Mode = iota
	// Mirror also deletes remote keys that are not desired.
	Mirror
)

func (m Mode) String() string {
	if m == Mirror {
		return "mirror"
	}
	return "additive"
}

// ParseMode parses "additive" or "mirror".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "additive", "add":
		return Additive, nil
	case "mirror":
		return Mirror, nil
	}
	return Additive, faults.Validationf("metadata", "unknown mode %q", s)
}

// Plan partitions the work into disjoint batches. Update and Delete entries
// carry remote ids.
type Plan struct {
	Create []models.MetadataEntry `json:"create"`
	Update []models.MetadataEntry `json:"update"`
	Delete []models.MetadataEntry `json:"delete"`
}

// Empty reports whether the plan has nothing to submit.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// DeleteIDs returns the remote ids of the delete batch.
func (p Plan) DeleteIDs() []string {
	ids := make([]string, 0, len(p.Delete))
	for _, e := range p.Delete {
		ids = append(ids, e.ID)
	}
	return ids
}

// NewPlan diffs desired against existing. Batches are ordered by key.
// Remote keys that appear more than once are collapsed onto the first entry;
// in Mirror mode the duplicates are deleted.
func NewPlan(existing []models.MetadataEntry, desired map[string]string, mode Mode) Plan {
	byKey := make(map[string]models.MetadataEntry, len(existing))
	var duplicates []models.MetadataEntry
	for _, e := range existing {
		if _, seen := byKey[e.Key]; seen {
			duplicates = append(duplicates, e)
			continue
		}
		byKey[e.Key] = e
	}

	var plan Plan
	for _, key := range sortedKeys(desired) {
		value := desired[key]
		current, ok := byKey[key]
		switch {
		case !ok:
			plan.Create = append(plan.Create, models.MetadataEntry{Key: key, Value: value})
		case current.Value != value:
			plan.Update = append(plan.Update, models.MetadataEntry{ID: current.ID, Key: key, Value: value})
		}
	}

	if mode == Mirror {
		for _, key := range sortedKeys(byKey) {
			if _, want := desired[key]; !want {
				plan.Delete = append(plan.Delete, byKey[key])
			}
		}
		sort.SliceStable(duplicates, func(i, j int) bool { return duplicates[i].Key < duplicates[j].Key })
		plan.Delete = append(plan.Delete, duplicates...)
	}
	return plan
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Applied is the outcome of a reconciliation. When an error is returned the
// counts show which batches completed.
type Applied struct {
	AssetUUID string `json:"asset_uuid"`
	Mode      string `json:"mode"`
	Plan      Plan   `json:"plan"`
	Deleted   int    `json:"deleted"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
}

// Reconciler applies plans through a metadata store.
type Reconciler struct {
	store  remote.MetadataStore
	logger *zap.Logger
}

// NewReconciler returns a reconciler. A nil logger discards output.
func NewReconciler(store remote.MetadataStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logging.OrNop(logger)}
}

// ReconcileAdditive creates and updates desired keys on the asset.
func (r *Reconciler) ReconcileAdditive(ctx context.Context, assetUUID string, desired map[string]string) (*Applied, error) {
	return r.Reconcile(ctx, assetUUID, desired, Additive)
}

// ReconcileMirror makes the asset's metadata equal to desired.
func (r *Reconciler) ReconcileMirror(ctx context.Context, assetUUID string, desired map[string]string) (*Applied, error) {
	return r.Reconcile(ctx, assetUUID, desired, Mirror)
}

// Reconcile fetches existing metadata, plans, and submits the delete batch
// before the create and update batches. Empty batches are not submitted and
// the first failing batch stops the rest.
func (r *Reconciler) Reconcile(ctx context.Context, assetUUID string, desired map[string]string, mode Mode) (*Applied, error) {
	if assetUUID == "" {
		return nil, faults.Validationf("reconcile metadata", "asset uuid is required")
	}
	applied := &Applied{AssetUUID: assetUUID, Mode: mode.String()}
	if mode == Additive && len(desired) == 0 {
		return applied, nil
	}

	existing, err := r.store.MetadataList(ctx, assetUUID)
	if err != nil {
		return applied, faults.Wrap(err, "list metadata")
	}
	applied.Plan = NewPlan(existing, desired, mode)
	log := r.logger.With(logging.AssetUUID(assetUUID), zap.Stringer("mode", mode))

	if len(applied.Plan.Delete) > 0 {
		if err := r.store.MetadataDelete(ctx, applied.Plan.DeleteIDs()); err != nil {
			return applied, faults.Wrap(err, "delete metadata")
		}
		applied.Deleted = len(applied.Plan.Delete)
		metrics.RecordMetadataBatch("delete", applied.Deleted)
		log.Debug("deleted metadata", zap.Int("count", applied.Deleted))
	}
	if len(applied.Plan.Create) > 0 {
		if err := r.store.MetadataCreate(ctx, assetUUID, applied.Plan.Create); err != nil {
			return applied, faults.Wrap(err, "create metadata")
		}
		applied.Created = len(applied.Plan.Create)
		metrics.RecordMetadataBatch("create", applied.Created)
		log.Debug("created metadata", zap.Int("count", applied.Created))
	}
	if len(applied.Plan.Update) > 0 {
		if err := r.store.MetadataEdit(ctx, applied.Plan.Update); err != nil {
			return applied, faults.Wrap(err, "update metadata")
		}
		applied.Updated = len(applied.Plan.Update)
		metrics.RecordMetadataBatch("edit", applied.Updated)
		log.Debug("updated metadata", zap.Int("count", applied.Updated))
	}
	return applied, nil
}

// ReconcileMany applies the same desired set to each asset in order and
// stops at the first failure.
func (r *Reconciler) ReconcileMany(ctx context.Context, assetUUIDs []string, desired map[string]string, mode Mode) ([]*Applied, error) {
	out := make([]*Applied, 0, len(assetUUIDs))
	for _, uuid := range assetUUIDs {
		applied, err := r.Reconcile(ctx, uuid, desired, mode)
		out = append(out, applied)
		if err != nil {
			return out, faults.Wrap(err, fmt.Sprintf("asset %s", uuid))
		}
	}
	return out, nil
}
