// Package store provides the persistence backends a rendezvous project's
// mailbox can use. The default is a plain in-process map, fine for a
// single dit-server process coordinating parties that are all online at
// once; Open also supports a redis-backed or SQL-backed (mysql, sqlite3)
// mailbox for a server that needs to survive a restart mid-protocol or be
// shared across server processes.
//
// Adapted from gnunet-go's util.KeyValueStore / OpenKVStore: same spec
// string shape and the same three backends, generalized from string
// values to the raw round payloads a DKG/signing round broadcasts.
package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	redis "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"dit/util"
)

// ErrInvalidSpec is returned by Open for a malformed spec string.
var ErrInvalidSpec = fmt.Errorf("invalid mailbox store specification")

// Mailbox stores and retrieves the round payloads parties broadcast or
// send p2p through a rendezvous project.
type Mailbox interface {
	Put(key string, value []byte) error
	Get(key string) (value []byte, found bool, err error)
}

// Open builds a Mailbox from a spec string. An empty spec is an
// in-process map. Otherwise the first '+'-delimited segment names the
// backend and the rest are its arguments:
//   - "redis+addr+passwd+db"   (db must parse as an integer)
//   - "sqlite3+path-to-file"
//   - "mysql+dsn"
func Open(spec string) (Mailbox, error) {
	if spec == "" {
		return NewMemory(), nil
	}
	segs := strings.Split(spec, "+")
	switch segs[0] {
	case "redis":
		if len(segs) < 4 {
			return nil, ErrInvalidSpec
		}
		db, err := strconv.Atoi(segs[3])
		if err != nil {
			return nil, ErrInvalidSpec
		}
		client := redis.NewClient(&redis.Options{Addr: segs[1], Password: segs[2], DB: db})
		return &redisMailbox{client: client}, nil

	case "sqlite3", "mysql":
		if len(segs) < 2 {
			return nil, ErrInvalidSpec
		}
		db, err := sql.Open(segs[0], segs[1])
		if err != nil {
			return nil, err
		}
		if _, err := db.Exec("create table if not exists mailbox (key text primary key, value text)"); err != nil {
			return nil, err
		}
		return &sqlMailbox{db: db}, nil
	}
	return nil, ErrInvalidSpec
}

//----------------------------------------------------------------------
// in-process map, the default
//----------------------------------------------------------------------

type memoryMailbox struct {
	m *util.Map[string, []byte]
}

// NewMemory returns a Mailbox backed by an in-process map: entries
// disappear when the server process exits.
func NewMemory() Mailbox {
	return &memoryMailbox{m: util.NewMap[string, []byte]()}
}

func (mm *memoryMailbox) Put(key string, value []byte) error {
	// clone before storing: the caller's slice is the body of a decoded
	// JSON request and must not be aliased past this handler returning.
	mm.m.Put(key, util.Clone(value), 0)
	return nil
}

func (mm *memoryMailbox) Get(key string) ([]byte, bool, error) {
	v, ok := mm.m.Get(key, 0)
	return v, ok, nil
}

//----------------------------------------------------------------------
// redis-backed
//----------------------------------------------------------------------

type redisMailbox struct {
	client *redis.Client
}

func (rm *redisMailbox) Put(key string, value []byte) error {
	return rm.client.Set(context.Background(), key, base64.StdEncoding.EncodeToString(value), 0).Err()
}

func (rm *redisMailbox) Get(key string) ([]byte, bool, error) {
	s, err := rm.client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

//----------------------------------------------------------------------
// SQL-backed (mysql, sqlite3)
//----------------------------------------------------------------------

type sqlMailbox struct {
	db *sql.DB
}

// Put upserts by hand (select-then-insert-or-update) rather than a
// dialect-specific "ON DUPLICATE KEY"/"ON CONFLICT" clause, so the same
// query works unmodified against both mysql and sqlite3 — a mailbox key
// like a broadcast round slot can legitimately be overwritten by a retry.
func (sm *sqlMailbox) Put(key string, value []byte) error {
	encoded := base64.StdEncoding.EncodeToString(value)
	_, _, err := sm.getRaw(key)
	if err == sql.ErrNoRows {
		_, err = sm.db.Exec("insert into mailbox(key, value) values(?, ?)", key, encoded)
		return err
	}
	if err != nil {
		return err
	}
	_, err = sm.db.Exec("update mailbox set value = ? where key = ?", encoded, key)
	return err
}

func (sm *sqlMailbox) getRaw(key string) (string, bool, error) {
	row := sm.db.QueryRow("select value from mailbox where key = ?", key)
	var s string
	if err := row.Scan(&s); err != nil {
		if err == sql.ErrNoRows {
			return "", false, sql.ErrNoRows
		}
		return "", false, err
	}
	return s, true, nil
}

func (sm *sqlMailbox) Get(key string) ([]byte, bool, error) {
	s, found, err := sm.getRaw(key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}
