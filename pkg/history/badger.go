package history

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures a Badger store.
type BadgerOptions struct {
	// Dir is the directory for the database files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives badger warnings and errors. Default is
	// slog.Default().
	Logger *slog.Logger
}

// NewBadger opens a Badger store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("history: BadgerOptions.Dir is required for on-disk mode")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", opts.Dir, err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Put(_ context.Context, rec *itslanguage.SpeechRecording) error {
	k, err := recordKey(rec)
	if err != nil {
		return err
	}
	v, err := encode(rec)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (b *Badger) Get(_ context.Context, org, challenge, id string) (*itslanguage.SpeechRecording, error) {
	k, err := key(org, challenge, id)
	if err != nil {
		return nil, err
	}
	var v []byte
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func (b *Badger) List(_ context.Context, org, challenge string) iter.Seq2[*itslanguage.SpeechRecording, error] {
	p, err := prefix(org, challenge)
	if err != nil {
		return func(yield func(*itslanguage.SpeechRecording, error) bool) { yield(nil, err) }
	}

	return func(yield func(*itslanguage.SpeechRecording, error) bool) {
		err := b.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = p
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				v, err := it.Item().ValueCopy(nil)
				if err != nil {
					if !yield(nil, err) {
						return nil
					}
					continue
				}
				if !yield(decode(v)) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

func (b *Badger) Delete(_ context.Context, org, challenge, id string) error {
	k, err := key(org, challenge, id)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger routes badger warnings and errors to slog and drops the rest.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...any) {
	l.logger.Error("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l badgerLogger) Warningf(f string, v ...any) {
	l.logger.Warn("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}
