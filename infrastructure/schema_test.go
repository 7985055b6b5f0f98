package infrastructure

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/byteness/hrflow/config"
)

func TestTableSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  TableSchema
		wantErr string
	}{
		{
			name:   "request table",
			schema: RequestTableSchema("leave_management"),
		},
		{
			name:   "log table",
			schema: LogTableSchema("logs"),
		},
		{
			name:   "users table",
			schema: UsersTableSchema("users"),
		},
		{
			name:    "missing name",
			schema:  RequestTableSchema(""),
			wantErr: "table name is required",
		},
		{
			name: "bad key type",
			schema: TableSchema{
				TableName:    "t",
				PartitionKey: KeyAttribute{Name: "id", Type: "B"},
			},
			wantErr: "invalid key type",
		},
		{
			name: "bad sort key",
			schema: TableSchema{
				TableName:    "t",
				PartitionKey: KeyAttribute{Name: "id", Type: KeyTypeString},
				SortKey:      &KeyAttribute{Type: KeyTypeString},
			},
			wantErr: "sort key: key attribute name is required",
		},
		{
			name: "unnamed index",
			schema: TableSchema{
				TableName:              "t",
				PartitionKey:           KeyAttribute{Name: "id", Type: KeyTypeString},
				GlobalSecondaryIndexes: []GSISchema{{PartitionKey: KeyAttribute{Name: "status", Type: KeyTypeString}}},
			},
			wantErr: "GSI index name is required",
		},
		{
			name: "duplicate index",
			schema: TableSchema{
				TableName:    "t",
				PartitionKey: KeyAttribute{Name: "id", Type: KeyTypeString},
				GlobalSecondaryIndexes: []GSISchema{
					{IndexName: "gsi-status", PartitionKey: KeyAttribute{Name: "status", Type: KeyTypeString}},
					{IndexName: "gsi-status", PartitionKey: KeyAttribute{Name: "state", Type: KeyTypeString}},
				},
			},
			wantErr: "duplicate index name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSchemasFor(t *testing.T) {
	tables := config.Tables{
		Leave:    "leave_management",
		GatePass: "gate_pass",
		Logs:     "logs",
		Users:    "users",
	}

	tests := []struct {
		name      string
		tables    config.Tables
		skipUsers bool
		want      []string
	}{
		{
			name:   "no joining table",
			tables: tables,
			want:   []string{"leave_management:requests", "gate_pass:requests", "logs:logs", "users:users"},
		},
		{
			name: "with joining table",
			tables: func() config.Tables {
				c := tables
				c.Joining = "joining_form"
				return c
			}(),
			want: []string{"leave_management:requests", "gate_pass:requests", "joining_form:joining", "logs:logs", "users:users"},
		},
		{
			name:      "roster replaces users table",
			tables:    tables,
			skipUsers: true,
			want:      []string{"leave_management:requests", "gate_pass:requests", "logs:logs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, s := range SchemasFor(tt.tables, tt.skipUsers) {
				got = append(got, s.TableName+":"+string(s.Role))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SchemasFor() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUsersTableSchema_Indexes(t *testing.T) {
	want := []string{"gsi-display-name", "gsi-employee-code", "gsi-department"}
	if diff := cmp.Diff(want, UsersTableSchema("users").GSINames()); diff != "" {
		t.Errorf("GSINames() mismatch (-want +got):\n%s", diff)
	}
}
