// Package infrastructure describes and provisions the DynamoDB tables hrflow
// reads and writes.
package infrastructure

import (
	"errors"
	"fmt"

	"github.com/byteness/hrflow/config"
	"github.com/byteness/hrflow/directory"
	"github.com/byteness/hrflow/request"
)

// KeyType represents a DynamoDB attribute type for keys.
type KeyType string

const (
	// KeyTypeString represents the DynamoDB String type.
	KeyTypeString KeyType = "S"
	// KeyTypeNumber represents the DynamoDB Number type.
	KeyTypeNumber KeyType = "N"
)

// IsValid returns true if the KeyType is a valid key type.
func (kt KeyType) IsValid() bool {
	return kt == KeyTypeString || kt == KeyTypeNumber
}

// KeyAttribute is a key attribute of a table or index.
type KeyAttribute struct {
	Name string
	Type KeyType
}

// Validate checks the attribute.
func (ka KeyAttribute) Validate() error {
	if ka.Name == "" {
		return errors.New("key attribute name is required")
	}
	if !ka.Type.IsValid() {
		return fmt.Errorf("invalid key type %q: must be S or N", ka.Type)
	}
	return nil
}

// GSISchema is a global secondary index. Indexes always project all
// attributes because the stores read whole items from them.
type GSISchema struct {
	IndexName    string
	PartitionKey KeyAttribute
	SortKey      *KeyAttribute
}

// Validate checks the index definition.
func (gsi GSISchema) Validate() error {
	if gsi.IndexName == "" {
		return errors.New("GSI index name is required")
	}
	if err := gsi.PartitionKey.Validate(); err != nil {
		return fmt.Errorf("GSI %q partition key: %w", gsi.IndexName, err)
	}
	if gsi.SortKey != nil {
		if err := gsi.SortKey.Validate(); err != nil {
			return fmt.Errorf("GSI %q sort key: %w", gsi.IndexName, err)
		}
	}
	return nil
}

// TableRole names what a table holds.
type TableRole string

const (
	RoleRequests TableRole = "requests"
	RoleJoining  TableRole = "joining"
	RoleLogs     TableRole = "logs"
	RoleUsers    TableRole = "users"
)

// TableSchema is a complete table definition. Tables are always created with
// on-demand billing.
type TableSchema struct {
	TableName              string
	Role                   TableRole
	PartitionKey           KeyAttribute
	SortKey                *KeyAttribute
	GlobalSecondaryIndexes []GSISchema
}

// Validate checks the table definition.
func (ts TableSchema) Validate() error {
	if ts.TableName == "" {
		return errors.New("table name is required")
	}
	if err := ts.PartitionKey.Validate(); err != nil {
		return fmt.Errorf("partition key: %w", err)
	}
	if ts.SortKey != nil {
		if err := ts.SortKey.Validate(); err != nil {
			return fmt.Errorf("sort key: %w", err)
		}
	}
	seen := make(map[string]bool, len(ts.GlobalSecondaryIndexes))
	for i, gsi := range ts.GlobalSecondaryIndexes {
		if err := gsi.Validate(); err != nil {
			return fmt.Errorf("GSI[%d]: %w", i, err)
		}
		if seen[gsi.IndexName] {
			return fmt.Errorf("GSI[%d]: duplicate index name %q", i, gsi.IndexName)
		}
		seen[gsi.IndexName] = true
	}
	return nil
}

// GSINames returns the index names in declaration order.
func (ts TableSchema) GSINames() []string {
	names := make([]string, len(ts.GlobalSecondaryIndexes))
	for i, gsi := range ts.GlobalSecondaryIndexes {
		names[i] = gsi.IndexName
	}
	return names
}

// RequestTableSchema is the layout of a leave or gate pass table, matching
// request.DynamoDBStore: partition key id, and a status index sorted by
// created_at for pending listings.
func RequestTableSchema(tableName string) TableSchema {
	return TableSchema{
		TableName:    tableName,
		Role:         RoleRequests,
		PartitionKey: KeyAttribute{Name: "id", Type: KeyTypeString},
		GlobalSecondaryIndexes: []GSISchema{
			{
				IndexName:    request.GSIStatus,
				PartitionKey: KeyAttribute{Name: "status", Type: KeyTypeString},
				SortKey:      &KeyAttribute{Name: "created_at", Type: KeyTypeString},
			},
		},
	}
}

// JoiningTableSchema is the layout of the joining form table.
func JoiningTableSchema(tableName string) TableSchema {
	return TableSchema{
		TableName:    tableName,
		Role:         RoleJoining,
		PartitionKey: KeyAttribute{Name: "id", Type: KeyTypeString},
	}
}

// LogTableSchema is the layout of the audit log table, keyed by request id
// and request type.
func LogTableSchema(tableName string) TableSchema {
	return TableSchema{
		TableName:    tableName,
		Role:         RoleLogs,
		PartitionKey: KeyAttribute{Name: "request_id", Type: KeyTypeString},
		SortKey:      &KeyAttribute{Name: "request_type", Type: KeyTypeString},
	}
}

// UsersTableSchema is the layout of the users table, matching
// directory.DynamoDBDirectory lookups by name, employee code and department.
func UsersTableSchema(tableName string) TableSchema {
	return TableSchema{
		TableName:    tableName,
		Role:         RoleUsers,
		PartitionKey: KeyAttribute{Name: "id", Type: KeyTypeString},
		GlobalSecondaryIndexes: []GSISchema{
			{IndexName: directory.GSIDisplayName, PartitionKey: KeyAttribute{Name: "full_name", Type: KeyTypeString}},
			{IndexName: directory.GSIEmployeeCode, PartitionKey: KeyAttribute{Name: "emp_id", Type: KeyTypeString}},
			{IndexName: directory.GSIDepartment, PartitionKey: KeyAttribute{Name: "department", Type: KeyTypeString}},
		},
	}
}

// SchemasFor returns the schemas of every table named in tables.
// Empty names are skipped. The users table is skipped when skipUsers is set,
// which is the case when principals come from a roster file.
func SchemasFor(tables config.Tables, skipUsers bool) []TableSchema {
	var schemas []TableSchema
	add := func(name string, build func(string) TableSchema) {
		if name != "" {
			schemas = append(schemas, build(name))
		}
	}
	add(tables.Leave, RequestTableSchema)
	add(tables.GatePass, RequestTableSchema)
	add(tables.Joining, JoiningTableSchema)
	add(tables.Logs, LogTableSchema)
	if !skipUsers {
		add(tables.Users, UsersTableSchema)
	}
	return schemas
}
