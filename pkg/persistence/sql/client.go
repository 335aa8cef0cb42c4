package sql

import (
	"context"
	dbsql "database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/gluufederation/containerlib-go/internal/metrics"
	"github.com/gluufederation/containerlib-go/pkg/errors"
)

// Client provides row operations against the configured relational
// engine. The database handle and the reflected table metadata are both
// built lazily and memoized.
type Client struct {
	adapter Adapter
	params  ConnParams
	db      *dbsql.DB
	tables  map[string]map[string]string
}

// NewClient builds a client for the dialect configured in the
// environment. No connection is opened until the first operation.
func NewClient() (*Client, error) {
	adapter, err := NewAdapter(GetDialect())
	if err != nil {
		return nil, err
	}
	return &Client{
		adapter: adapter,
		params:  ConnParamsFromEnv(),
	}, nil
}

// Adapter exposes the dialect adapter backing this client.
func (c *Client) Adapter() Adapter {
	return c.adapter
}

// EngineURL renders the connection settings as a display URL.
func (c *Client) EngineURL() string {
	return c.adapter.URL(c.params)
}

// engine opens the database handle once and reuses it afterwards.
func (c *Client) engine() (*dbsql.DB, error) {
	if c.db != nil {
		return c.db, nil
	}

	db, err := dbsql.Open(c.adapter.DriverName(), c.adapter.DSN(c.params))
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeConnectionFailed,
			fmt.Sprintf("failed to open database handle: %v", err)).
			WithComponent("sql").
			WithCause(err)
	}
	c.db = db
	return c.db, nil
}

// TableMapping reflects table and column metadata from
// information_schema into table name -> column name -> type, memoizing
// the result until a table is created.
func (c *Client) TableMapping(ctx context.Context) (map[string]map[string]string, error) {
	if c.tables != nil {
		return c.tables, nil
	}

	db, err := c.engine()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = %s",
		c.adapter.Placeholder(1))
	rows, err := db.QueryContext(ctx, query, c.adapter.SchemaName(c.params.Database))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := map[string]map[string]string{}
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return nil, err
		}
		if tables[table] == nil {
			tables[table] = map[string]string{}
		}
		tables[table][column] = dataType
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.tables = tables
	return tables, nil
}

// Connected reports whether the engine answers a trivial liveness query.
func (c *Client) Connected(ctx context.Context) (bool, error) {
	db, err := c.engine()
	if err != nil {
		return false, err
	}

	start := time.Now()
	var alive int
	err = db.QueryRowContext(ctx, "SELECT 1 AS is_alive").Scan(&alive)
	metrics.Default().RecordOperation("sql", "connected", time.Since(start), err)
	if err != nil {
		return false, err
	}
	return alive > 0, nil
}

// CreateTable creates a table with the given column types and primary
// key. An already-existing table is a benign no-op; any other engine
// error propagates unchanged.
func (c *Client) CreateTable(ctx context.Context, tableName string, columnMapping map[string]string, pkColumn string) error {
	db, err := c.engine()
	if err != nil {
		return err
	}

	query := c.createTableQuery(tableName, columnMapping, pkColumn)
	start := time.Now()
	_, err = db.ExecContext(ctx, query)
	metrics.Default().RecordOperation("sql", "create_table", time.Since(start), err)
	if err != nil {
		if c.adapter.ClassifyCreateTableError(err) != errors.ClassRecoverable {
			return err
		}
		return nil
	}

	// A new table invalidates the reflected metadata.
	c.tables = nil
	return nil
}

func (c *Client) createTableQuery(tableName string, columnMapping map[string]string, pkColumn string) string {
	columns := make([]string, 0, len(columnMapping))
	for _, name := range sortedKeys(columnMapping) {
		definition := fmt.Sprintf("%s %s", c.quotedID(name), columnMapping[name])
		if name == pkColumn {
			definition += " NOT NULL UNIQUE"
		}
		columns = append(columns, definition)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s, PRIMARY KEY (%s))",
		c.quotedID(tableName), strings.Join(columns, ", "), c.quotedID(pkColumn))
}

// CreateIndex executes a raw CREATE INDEX statement. An already-existing
// index is a benign no-op; any other engine error propagates unchanged.
func (c *Client) CreateIndex(ctx context.Context, query string) error {
	db, err := c.engine()
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = db.ExecContext(ctx, query)
	metrics.Default().RecordOperation("sql", "create_index", time.Since(start), err)
	if err != nil && c.adapter.ClassifyCreateIndexError(err) != errors.ClassRecoverable {
		return err
	}
	return nil
}

// RowExists reports whether a row with the given doc_id exists. Unknown
// tables yield false rather than an error.
func (c *Client) RowExists(ctx context.Context, tableName, id string) (bool, error) {
	tables, err := c.TableMapping(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := tables[tableName]; !ok {
		return false, nil
	}

	db, err := c.engine()
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s",
		c.quotedID(tableName), c.quotedID("doc_id"), c.adapter.Placeholder(1))

	start := time.Now()
	var count int
	err = db.QueryRowContext(ctx, query, id).Scan(&count)
	metrics.Default().RecordOperation("sql", "row_exists", time.Since(start), err)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Get returns the row whose doc_id matches id, optionally projected to
// the named columns. A missing row yields an empty map.
func (c *Client) Get(ctx context.Context, tableName, id string, columnNames []string) (map[string]interface{}, error) {
	db, err := c.engine()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		c.projection(columnNames), c.quotedID(tableName), c.quotedID("doc_id"), c.adapter.Placeholder(1))

	start := time.Now()
	rows, err := db.QueryContext(ctx, query, id)
	metrics.Default().RecordOperation("sql", "get", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return map[string]interface{}{}, nil
	}
	return scanRow(rows)
}

// Update sets the given columns on the row whose doc_id matches id and
// reports whether a row changed.
func (c *Client) Update(ctx context.Context, tableName, id string, columnMapping map[string]interface{}) (bool, error) {
	db, err := c.engine()
	if err != nil {
		return false, err
	}

	query, args, err := c.updateQuery(tableName, id, columnMapping)
	if err != nil {
		return false, err
	}

	start := time.Now()
	result, err := db.ExecContext(ctx, query, args...)
	metrics.Default().RecordOperation("sql", "update", time.Since(start), err)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (c *Client) updateQuery(tableName, id string, columnMapping map[string]interface{}) (string, []interface{}, error) {
	names := sortedKeys(columnMapping)
	sets := make([]string, len(names))
	args := make([]interface{}, 0, len(names)+1)

	for i, name := range names {
		sets[i] = fmt.Sprintf("%s = %s", c.quotedID(name), c.adapter.Placeholder(i+1))
		value, err := driverValue(columnMapping[name])
		if err != nil {
			return "", nil, err
		}
		args = append(args, value)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		c.quotedID(tableName), strings.Join(sets, ", "),
		c.quotedID("doc_id"), c.adapter.Placeholder(len(names)+1))
	args = append(args, id)
	return query, args, nil
}

// Search returns all rows of a table, optionally projected to the named
// columns.
func (c *Client) Search(ctx context.Context, tableName string, columnNames []string) ([]map[string]interface{}, error) {
	db, err := c.engine()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", c.projection(columnNames), c.quotedID(tableName))

	start := time.Now()
	rows, err := db.QueryContext(ctx, query)
	metrics.Default().RecordOperation("sql", "search", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []map[string]interface{}
	for rows.Next() {
		entry, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// InsertInto adds one row. JSON-typed columns missing from the mapping
// are populated with the dialect's empty JSON default first; a duplicate
// entry is a benign no-op, and any other engine error propagates
// unchanged.
func (c *Client) InsertInto(ctx context.Context, tableName string, columnMapping map[string]interface{}) error {
	tables, err := c.TableMapping(ctx)
	if err != nil {
		return err
	}

	values := c.applyJSONDefaults(columnMapping, tables[tableName])

	db, err := c.engine()
	if err != nil {
		return err
	}

	query, args, err := c.insertQuery(tableName, values)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = db.ExecContext(ctx, query, args...)
	metrics.Default().RecordOperation("sql", "insert_into", time.Since(start), err)
	if err != nil && c.adapter.ClassifyInsertError(err) != errors.ClassRecoverable {
		return err
	}
	return nil
}

// applyJSONDefaults copies columnMapping, filling JSON-typed columns that
// are absent from it with the dialect's empty JSON default.
func (c *Client) applyJSONDefaults(columnMapping map[string]interface{}, columns map[string]string) map[string]interface{} {
	values := make(map[string]interface{}, len(columnMapping))
	for name, value := range columnMapping {
		values[name] = value
	}
	for column, dataType := range columns {
		if _, ok := values[column]; ok {
			continue
		}
		// Type names are compared case-insensitively; a compatibility shim
		// for engines that report JSON in upper case.
		if !strings.EqualFold(dataType, c.adapter.JSONType()) {
			continue
		}
		values[column] = c.adapter.JSONDefault()
	}
	return values
}

func (c *Client) insertQuery(tableName string, values map[string]interface{}) (string, []interface{}, error) {
	names := sortedKeys(values)
	columns := make([]string, len(names))
	placeholders := make([]string, len(names))
	args := make([]interface{}, len(names))

	for i, name := range names {
		columns[i] = c.quotedID(name)
		placeholders[i] = c.adapter.Placeholder(i + 1)
		value, err := driverValue(values[name])
		if err != nil {
			return "", nil, err
		}
		args[i] = value
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.quotedID(tableName), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return query, args, nil
}

// ServerVersion returns the engine's version string.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	db, err := c.engine()
	if err != nil {
		return "", err
	}

	start := time.Now()
	var version string
	err = db.QueryRowContext(ctx, c.adapter.VersionQuery()).Scan(&version)
	metrics.Default().RecordOperation("sql", "server_version", time.Since(start), err)
	if err != nil {
		return "", err
	}
	return version, nil
}

// ServerVersionParts returns the numeric components of the server
// version, so callers can gate features on major/minor checks.
func (c *Client) ServerVersionParts(ctx context.Context) ([]int, error) {
	version, err := c.ServerVersion(ctx)
	if err != nil {
		return nil, err
	}
	return ParseVersionParts(version), nil
}

func (c *Client) quotedID(identifier string) string {
	return c.adapter.QuoteChar() + identifier + c.adapter.QuoteChar()
}

func (c *Client) projection(columnNames []string) string {
	if len(columnNames) == 0 {
		return "*"
	}
	quoted := make([]string, len(columnNames))
	for i, name := range columnNames {
		quoted[i] = c.quotedID(name)
	}
	return strings.Join(quoted, ", ")
}

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// ParseVersionParts extracts the first dotted numeric run from a server
// version string: "8.0.30-log" yields [8 0 30]. Strings without one
// yield nil.
func ParseVersionParts(version string) []int {
	match := versionPattern.FindString(version)
	if match == "" {
		return nil
	}

	pieces := strings.Split(match, ".")
	parts := make([]int, len(pieces))
	for i, piece := range pieces {
		parts[i], _ = strconv.Atoi(piece)
	}
	return parts
}

// DocIDFromDN extracts the row key for an LDAP DN: the value of its
// first RDN, with the organization root mapped to "_".
//
// Example usage:
//
//	id, err := sql.DocIDFromDN("inum=29DA,ou=attributes,o=gluu")
//	// id == "29DA"
func DocIDFromDN(dn string) (string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", errors.NewError(errors.ErrCodeEncodingFailed,
			fmt.Sprintf("failed to parse DN: %v", err)).
			WithComponent("sql").
			WithCause(err)
	}
	if len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return "", errors.NewError(errors.ErrCodeEncodingFailed, "empty DN").
			WithComponent("sql")
	}

	docID := parsed.RDNs[0].Attributes[0].Value
	if docID == "gluu" {
		docID = "_"
	}
	return docID, nil
}

// scanRow reads the current result row into a column-keyed map. Byte
// slices are surfaced as strings, which is how MySQL hands back text.
func scanRow(rows *dbsql.Rows) (map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	entry := make(map[string]interface{}, len(columns))
	for i, name := range columns {
		value := values[i]
		if raw, ok := value.([]byte); ok {
			value = string(raw)
		}
		entry[name] = value
	}
	return entry, nil
}

// driverValue converts map and slice values to their JSON text form for
// the driver; scalars and raw bytes pass through untouched.
func driverValue(value interface{}) (interface{}, error) {
	switch value.(type) {
	case nil, []byte:
		return value, nil
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, errors.NewError(errors.ErrCodeEncodingFailed,
				fmt.Sprintf("failed to encode column value: %v", err)).
				WithComponent("sql").
				WithCause(err)
		}
		return string(encoded), nil
	}
	return value, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
