package handler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/core/fileutil"
	"clouddisk-sync/core/logger"
	"clouddisk-sync/core/notify"
	"clouddisk-sync/core/record"
	"clouddisk-sync/feature/clouddisk/convertor"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
)

// Batch limits.
const (
	// MaxRename bounds the conflict rename probe.
	MaxRename = 10

	PullLimit   = 20
	RetryLimit  = 20
	CreateLimit = 5
	FdirtyLimit = 5
	DeleteLimit = 20
	MdirtyLimit = 20
	CleanBatch  = 500
)

// FetchCondition tells the puller what to request from the cloud.
type FetchCondition struct {
	Limit       int      `json:"limit"`
	RecordType  string   `json:"record_type"`
	DesiredKeys []string `json:"desired_keys"`
	FullKeys    []string `json:"full_keys"`
}

var (
	desiredKeys = []string{
		record.KeyFileName, record.KeyParentFolder, record.KeyIsDirectory,
		record.KeySize, record.KeySha256, record.KeyDirectlyRecycled,
		record.KeyIsRecycled, record.KeyTimeRecycled, record.KeyAttributes,
		record.KeyContent,
	}
	checkedKeys = []string{record.KeyVersion, record.KeyID}
)

// Options configures a Handler. Store and Dentries are required.
type Options struct {
	Store      rdb.Store
	Dentries   dentry.Store
	Sink       notify.Sink
	Opener     fileutil.OpenChecker
	Layout     fileutil.Layout
	RecordType string
	Logger     *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Handler is the reconciliation engine of one user's cloud disk. It applies
// pulled records to the local table and dentry store and builds the
// outgoing batches of local changes.
//
// Every exported method holds the instance lock for its whole duration, so
// pull and push calls on one Handler never interleave.
type Handler struct {
	mu sync.Mutex

	store      rdb.Store
	dentries   dentry.Store
	sink       notify.Sink
	opener     fileutil.OpenChecker
	layout     fileutil.Layout
	recordType string
	log        *zap.Logger
	clock      func() time.Time

	local  *convertor.Convertor
	create *convertor.Convertor
	del    *convertor.Convertor
	mdirty *convertor.Convertor
	fdirty *convertor.Convertor

	// session fail-sets, cleared by Reset
	createFailed map[string]struct{}
	modifyFailed map[string]struct{}
	checking     bool
}

// New builds a Handler.
func New(opts Options) (*Handler, error) {
	if opts.Store == nil {
		return nil, errors.New("handler: relational store is required")
	}
	if opts.Dentries == nil {
		return nil, errors.New("handler: dentry store is required")
	}
	if opts.Sink == nil {
		opts.Sink = notify.Nop{}
	}
	if opts.Opener == nil {
		opts.Opener = fileutil.ProcChecker{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RecordType == "" {
		opts.RecordType = record.TypeFile
	}

	h := &Handler{
		store:        opts.Store,
		dentries:     opts.Dentries,
		sink:         opts.Sink,
		opener:       opts.Opener,
		layout:       opts.Layout,
		recordType:   opts.RecordType,
		log:          logger.WithSession(opts.Logger, opts.Layout.UserID, opts.Layout.Bundle),
		clock:        opts.Clock,
		createFailed: make(map[string]struct{}),
		modifyFailed: make(map[string]struct{}),
	}
	h.local = convertor.New(convertor.FlowDownload, opts.Layout, opts.RecordType, nil)
	h.create = convertor.New(convertor.FlowCreate, opts.Layout, opts.RecordType, h.failInto(h.createFailed))
	h.del = convertor.New(convertor.FlowDelete, opts.Layout, opts.RecordType, h.failInto(h.modifyFailed))
	h.mdirty = convertor.New(convertor.FlowMetaModify, opts.Layout, opts.RecordType, h.failInto(h.modifyFailed))
	h.fdirty = convertor.New(convertor.FlowDataModify, opts.Layout, opts.RecordType, h.failInto(h.modifyFailed))
	return h, nil
}

// failInto returns a conversion error handler that excludes the failing
// row for the rest of the session. It runs with h.mu held.
func (h *Handler) failInto(set map[string]struct{}) convertor.ErrHandler {
	return func(row rdb.Row, err error) {
		id, idErr := row.String(models.ColCloudID)
		if idErr != nil {
			h.log.Warn("Dropping unconvertible row without cloud id", zap.Error(err))
			return
		}
		h.log.Warn("Failed to convert row", zap.String("cloud_id", id), zap.Error(err))
		set[id] = struct{}{}
	}
}

// GetFetchCondition describes the next pull request.
func (h *Handler) GetFetchCondition() FetchCondition {
	h.mu.Lock()
	defer h.mu.Unlock()

	cond := FetchCondition{
		Limit:      PullLimit,
		RecordType: h.recordType,
		FullKeys:   append([]string(nil), desiredKeys...),
	}
	if h.checking {
		cond.DesiredKeys = append([]string(nil), checkedKeys...)
	} else {
		cond.DesiredKeys = append([]string(nil), desiredKeys...)
	}
	return cond
}

// SetChecking switches fetch conditions to the id/version-only listing
// used by consistency checks.
func (h *Handler) SetChecking(on bool) {
	h.mu.Lock()
	h.checking = on
	h.mu.Unlock()
}

// Reset forgets the session fail-sets.
func (h *Handler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.createFailed)
	clear(h.modifyFailed)
}

// Layout returns the content layout the handler works on.
func (h *Handler) Layout() fileutil.Layout { return h.layout }

func (h *Handler) nowMillis() int64 {
	return h.clock().UnixMilli()
}

func (h *Handler) notify(ctx context.Context, op notify.Op, cloudID string, t notify.Type, rec *record.Record) {
	h.sink.TryNotify(ctx, notify.Notification{
		Op:        op,
		CloudID:   cloudID,
		Type:      t,
		Record:    rec,
		Timestamp: h.nowMillis(),
	})
}

func byID(p *rdb.Predicates, cloudID string) *rdb.Predicates {
	return p.EqualTo(models.ColCloudID, cloudID)
}

func whereID(cloudID string) *rdb.Predicates {
	return byID(rdb.NewPredicates(), cloudID)
}

func setKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
