package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	kv      interfaces.KeyValueStorage
	runLock *RunLock
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		kv:      NewKVStorage(db, logger),
		runLock: NewRunLock(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// RunLock returns the campaign run lease
func (m *Manager) RunLock() *RunLock {
	return m.runLock
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing badger storage manager")
	return m.db.Close()
}

var _ interfaces.StorageManager = (*Manager)(nil)
