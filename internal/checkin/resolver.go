package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"guest-checkin/internal/models"
)

// Action is the branch a check-in took
type Action string

const (
	ActionUpdate Action = "UPDATE"
	ActionCreate Action = "CREATE"
)

// DefaultTimeLayout renders arrival times like "07:05 PM"
const DefaultTimeLayout = "03:04 PM"

// Result describes a completed check-in
type Result struct {
	Action       Action             `json:"type"`
	Name         string             `json:"name"`
	Message      string             `json:"message"`
	MatchedValue string             `json:"matchedValue"`
	Record       models.GuestRecord `json:"record"`
}

// Config holds the resolver settings
type Config struct {
	Fields      models.FieldMap
	CountryCode string
	Location    *time.Location
	TimeLayout  string
	Locker      Locker
	// Now is overridable for tests
	Now func() time.Time
}

// Resolver finds the guest matching an identifier and either marks them
// arrived or creates a new arrived guest.
type Resolver struct {
	store      Store
	fields     models.FieldMap
	normalizer Normalizer
	location   *time.Location
	layout     string
	locker     Locker
	now        func() time.Time
	log        zerolog.Logger
}

// NewResolver creates a resolver over store
func NewResolver(store Store, cfg Config, log zerolog.Logger) *Resolver {
	r := &Resolver{
		store:      store,
		fields:     cfg.Fields,
		normalizer: Normalizer{CountryCode: cfg.CountryCode},
		location:   cfg.Location,
		layout:     cfg.TimeLayout,
		locker:     cfg.Locker,
		now:        cfg.Now,
		log:        log.With().Str("component", "resolver").Logger(),
	}
	if r.fields == (models.FieldMap{}) {
		r.fields = models.DefaultFieldMap()
	}
	if r.location == nil {
		r.location = time.Local
	}
	if r.layout == "" {
		r.layout = DefaultTimeLayout
	}
	if r.locker == nil {
		r.locker = NoopLocker{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Fields returns the field mapping in use
func (r *Resolver) Fields() models.FieldMap {
	return r.fields
}

// CheckIn runs one check-in. Store failures abort with no retry; nothing is
// rolled back because at most one mutation is ever issued.
func (r *Resolver) CheckIn(ctx context.Context, id Identifier) (*Result, error) {
	mode, value, err := id.SearchKey()
	if err != nil {
		return nil, err
	}
	q, err := r.normalizer.BuildQuery(mode, value, r.fields)
	if err != nil {
		return nil, err
	}

	unlock := r.locker.Lock(mode.String() + ":" + q.Value)
	defer unlock()

	r.log.Info().Str("mode", mode.String()).Str("field", q.Field).Str("match", q.Match.String()).
		Str("value", q.Value).Msg("Searching guest")

	records, err := r.store.Search(ctx, q)
	if err != nil {
		r.log.Error().Err(err).Str("mode", mode.String()).Msg("Guest search failed")
		return nil, fmt.Errorf("search guest: %w", err)
	}

	arrivedAt := r.now().In(r.location).Format(r.layout)

	if len(records) > 0 {
		if len(records) > 1 {
			r.log.Warn().Int("matches", len(records)).Str("value", q.Value).Msg("Multiple guests matched, using the first")
		}
		return r.update(ctx, records[0], arrivedAt)
	}
	return r.create(ctx, id, mode, value, arrivedAt)
}

func (r *Resolver) update(ctx context.Context, existing models.StoredRecord, arrivedAt string) (*Result, error) {
	fields := map[string]any{
		r.fields.Arrived:   true,
		r.fields.ArrivedAt: arrivedAt,
	}
	updated, err := r.store.Update(ctx, existing.ID, fields)
	if err != nil {
		r.log.Error().Err(err).Str("id", existing.ID).Msg("Guest update failed")
		return nil, fmt.Errorf("update guest %s: %w", existing.ID, err)
	}

	merged := models.StoredRecord{ID: existing.ID, Fields: make(map[string]any, len(existing.Fields)+2)}
	for k, v := range existing.Fields {
		merged.Fields[k] = v
	}
	for k, v := range updated.Fields {
		merged.Fields[k] = v
	}
	for k, v := range fields {
		merged.Fields[k] = v
	}

	name := existing.String(r.fields.Name)
	if name == "" {
		name = models.UnknownName
	}
	r.log.Info().Str("id", existing.ID).Str("name", name).Msg("Guest checked in")

	return &Result{
		Action:       ActionUpdate,
		Name:         name,
		Message:      "Checked in: " + name,
		MatchedValue: name,
		Record:       r.fields.View(merged),
	}, nil
}

func (r *Resolver) create(ctx context.Context, id Identifier, mode SearchMode, value, arrivedAt string) (*Result, error) {
	fields := map[string]any{
		r.fields.Name:      models.NewGuestName,
		r.fields.Arrived:   true,
		r.fields.ArrivedAt: arrivedAt,
		r.fields.Phone:     models.NotApplicable,
		r.fields.Handle:    models.NotApplicable,
	}
	switch mode {
	case SearchByHandle:
		fields[r.fields.Handle] = value
		// a phone sent alongside a handle is kept, it just isn't searched
		if phone := id.Phone; phone != "" {
			fields[r.fields.Phone] = phone
		}
	case SearchByPhone:
		fields[r.fields.Phone] = value
	}

	created, err := r.store.Create(ctx, fields)
	if err != nil {
		r.log.Error().Err(err).Str("mode", mode.String()).Msg("Guest create failed")
		return nil, fmt.Errorf("create guest: %w", err)
	}

	merged := models.StoredRecord{ID: created.ID, Fields: make(map[string]any, len(fields))}
	for k, v := range created.Fields {
		merged.Fields[k] = v
	}
	for k, v := range fields {
		merged.Fields[k] = v
	}
	r.log.Info().Str("id", created.ID).Str("mode", mode.String()).Msg("New guest recorded")

	return &Result{
		Action:       ActionCreate,
		Name:         models.NewGuestName,
		Message:      "New guest recorded",
		MatchedValue: value,
		Record:       r.fields.View(merged),
	}, nil
}
