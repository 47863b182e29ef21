package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var ErrCacheMiss = errors.New("client: cache miss")

// Cache is durable storage for a Session's state.
type Cache interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
	Clear(ctx context.Context) error
}

type MemoryCache struct {
	mu    sync.Mutex
	state *State
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

func (c *MemoryCache) Load(context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return State{}, ErrCacheMiss
	}
	return *c.state, nil
}

func (c *MemoryCache) Save(_ context.Context, st State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = &st
	return nil
}

func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = nil
	return nil
}

// sessionRow is one persisted session, keyed so several profiles can share a file.
type sessionRow struct {
	SessionKey string `gorm:"primaryKey;size:64"`
	Value      string `gorm:"not null"`
	UpdatedAt  time.Time
}

func (sessionRow) TableName() string { return "client_sessions" }

// SQLiteCache keeps the session in a local sqlite file so it survives restarts.
type SQLiteCache struct {
	db  *gorm.DB
	key string
}

// OpenSQLiteCache opens (creating if needed) the sqlite database at path.
func OpenSQLiteCache(path, key string) (*SQLiteCache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session cache: %w", err)
	}
	return NewSQLiteCache(db, key)
}

func NewSQLiteCache(db *gorm.DB, key string) (*SQLiteCache, error) {
	if key == "" {
		key = "default"
	}
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate session cache: %w", err)
	}
	return &SQLiteCache{db: db, key: key}, nil
}

func (c *SQLiteCache) Load(ctx context.Context) (State, error) {
	var row sessionRow
	err := c.db.WithContext(ctx).Where("session_key = ?", c.key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return State{}, ErrCacheMiss
	}
	if err != nil {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal([]byte(row.Value), &st); err != nil {
		return State{}, fmt.Errorf("decode cached session: %w", err)
	}
	return st, nil
}

func (c *SQLiteCache) Save(ctx context.Context, st State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	row := sessionRow{SessionKey: c.key, Value: string(b), UpdatedAt: time.Now().UTC()}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

func (c *SQLiteCache) Clear(ctx context.Context) error {
	return c.db.WithContext(ctx).Where("session_key = ?", c.key).Delete(&sessionRow{}).Error
}

func (c *SQLiteCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
