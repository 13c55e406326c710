package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pixdex/internal/db"
)

// idField is stored in every row hash so FT.SEARCH can return it.
const idField = "id"

// InsertRow allocates an id via INCR and writes the row hash.
// Lookup columns also get a secondary key pointing at the id.
func (s *Store) InsertRow(ctx context.Context, table string, row *db.Row) (int64, error) {
	id, err := s.do(ctx, s.b().Incr().Key(s.seqKey(table)).Build()).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncr, Err: err}
	}

	fields := make(map[string]string, len(row.Values)+len(row.Vectors)+1)
	fields[idField] = strconv.FormatInt(id, 10)
	for k, v := range row.Values {
		fields[k] = formatValue(v)
	}
	for k, vec := range row.Vectors {
		if len(vec) > 0 {
			fields[k] = vectorToBytes(vec)
		}
	}

	cmds := make(rueidis.Commands, 0, 1+len(s.lookup))
	cmds = append(cmds, s.hset(s.rowKey(table, id), fields))
	for col := range s.lookup {
		v, ok := row.Values[col]
		if !ok {
			continue
		}
		cmds = append(cmds, s.b().Set().Key(s.lookupKey(table, col, formatValue(v))).
			Value(fields[idField]).Build())
	}

	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return 0, &db.Error{Op: db.OpHSet, Err: err}
		}
	}
	return id, nil
}

// UpdateRow writes values and vectors onto an existing row hash.
// Nil vectors are removed with HDEL, which also drops the row from that vector's index.
func (s *Store) UpdateRow(ctx context.Context, table string, row *db.Row) error {
	key := s.rowKey(table, row.ID)

	exists, err := s.do(ctx, s.b().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpHGetAll, Err: err}
	}
	if exists == 0 {
		return db.ErrKeyNotFound
	}

	fields := make(map[string]string, len(row.Values)+len(row.Vectors))
	var clear []string
	for k, v := range row.Values {
		fields[k] = formatValue(v)
	}
	for k, vec := range row.Vectors {
		if len(vec) == 0 {
			clear = append(clear, k)
			continue
		}
		fields[k] = vectorToBytes(vec)
	}

	if len(fields) > 0 {
		if err := s.do(ctx, s.hset(key, fields)).Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: err}
		}
	}
	if len(clear) > 0 {
		cmd := s.b().Hdel().Key(key).Field(clear...).Build()
		if err := s.do(ctx, cmd).Error(); err != nil {
			return &db.Error{Op: db.OpHDel, Err: err}
		}
	}
	return nil
}

// GetRow returns the row hash. Vector blobs are included as raw strings.
func (s *Store) GetRow(ctx context.Context, table string, id int64) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(s.rowKey(table, id)).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	if len(m) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return m, nil
}

// FindRowID resolves a lookup column value to a row id.
func (s *Store) FindRowID(ctx context.Context, table, column, value string) (int64, error) {
	if !s.lookup[column] {
		return 0, fmt.Errorf("column %q has no lookup key", column)
	}
	raw, err := s.Get(ctx, s.lookupKey(table, column, value))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpGet, Err: fmt.Errorf("parse id: %w", err)}
	}
	return id, nil
}

func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	return cmd.Build()
}

func (s *Store) rowKey(table string, id int64) string {
	return s.rowPrefix(table) + strconv.FormatInt(id, 10)
}

func (s *Store) rowPrefix(table string) string {
	return s.keyPrefix + table + ":"
}

func (s *Store) seqKey(table string) string {
	return s.keyPrefix + table + ":seq"
}

// lookupKey hashes the value so arbitrary URLs stay short and key-safe.
func (s *Store) lookupKey(table, column, value string) string {
	sum := sha256.Sum256([]byte(value))
	return s.keyPrefix + table + ":" + column + ":" + hex.EncodeToString(sum[:])
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
