package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/colgit/internal/persistence/gateway"
)

func TestDialectQuote(t *testing.T) {
	tests := []struct {
		engine gateway.Engine
		ident  string
		want   string
	}{
		{gateway.EngineSQLite, "users", `"users"`},
		{gateway.EngineSQLite, `we"ird`, `"we""ird"`},
		{gateway.EnginePostgres, "users", `"users"`},
		{gateway.EnginePostgres, `we"ird`, `"we""ird"`},
		{gateway.EngineMySQL, "users", "`users`"},
		{gateway.EngineMySQL, "we`ird", "`we``ird`"},
	}

	for _, tt := range tests {
		t.Run(string(tt.engine)+"/"+tt.ident, func(t *testing.T) {
			d, err := DialectFor(tt.engine)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Quote(tt.ident))
		})
	}
}

func TestDialectFor_Unknown(t *testing.T) {
	_, err := DialectFor("oracle")
	assert.ErrorIs(t, err, gateway.ErrUnknownEngine)
}

func TestRenderAddColumn(t *testing.T) {
	op := AddColumn{Table: "communities", Column: "avatar_url", Definition: "VARCHAR(255)", After: "description"}

	assert.Equal(t,
		"ALTER TABLE `communities` ADD COLUMN `avatar_url` VARCHAR(255) AFTER `description`",
		mysqlDialect.RenderAddColumn(op))
	assert.Equal(t,
		`ALTER TABLE "communities" ADD COLUMN "avatar_url" VARCHAR(255)`,
		postgresDialect.RenderAddColumn(op))
	assert.Equal(t,
		`ALTER TABLE "communities" ADD COLUMN "avatar_url" VARCHAR(255)`,
		sqliteDialect.RenderAddColumn(op))
}

func TestRenderAddIndex(t *testing.T) {
	assert.Equal(t,
		`CREATE INDEX "idx_repo_updated_at" ON "repositories" ("updated_at")`,
		sqliteDialect.RenderAddIndex(AddIndex{Table: "repositories", Name: "idx_repo_updated_at", Columns: []string{"updated_at"}}))
	assert.Equal(t,
		"CREATE UNIQUE INDEX `uq_repo_owner_name` ON `repositories` (`owner_id`, `name`)",
		mysqlDialect.RenderAddIndex(AddIndex{Table: "repositories", Name: "uq_repo_owner_name", Columns: []string{"owner_id", "name"}, Unique: true}))
}

func TestRenderCreateTable(t *testing.T) {
	op := CreateTable{
		Table: "community_members",
		Columns: []Column{
			{Name: "community_id", Definition: "VARCHAR(36) NOT NULL"},
			{Name: "user_id", Definition: "VARCHAR(36) NOT NULL"},
		},
		PrimaryKey: []string{"community_id", "user_id"},
		ForeignKeys: []ForeignKey{
			{Name: "fk_member_user", Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}, OnDelete: "cascade"},
		},
		Indexes: []AddIndex{{Name: "idx_member_user", Columns: []string{"user_id"}}},
	}

	want := "CREATE TABLE \"community_members\" (\n" +
		"  \"community_id\" VARCHAR(36) NOT NULL,\n" +
		"  \"user_id\" VARCHAR(36) NOT NULL,\n" +
		"  PRIMARY KEY (\"community_id\", \"user_id\"),\n" +
		"  CONSTRAINT \"fk_member_user\" FOREIGN KEY (\"user_id\") REFERENCES \"users\" (\"id\") ON DELETE CASCADE\n" +
		")"
	assert.Equal(t, want, postgresDialect.RenderCreateTable(op))
}

func TestRenderCreateTable_EngineOverrides(t *testing.T) {
	op := CreateTable{
		Table: "file_versions",
		Columns: []Column{
			{Name: "id", Definition: "VARCHAR(36) NOT NULL"},
			{Name: "content", Definition: "BLOB", Overrides: map[gateway.Engine]string{
				gateway.EnginePostgres: "BYTEA",
				gateway.EngineMySQL:    "LONGBLOB",
			}},
		},
		PrimaryKey: []string{"id"},
	}

	assert.Contains(t, sqliteDialect.RenderCreateTable(op), `"content" BLOB,`)
	assert.Contains(t, postgresDialect.RenderCreateTable(op), `"content" BYTEA,`)
	assert.Contains(t, mysqlDialect.RenderCreateTable(op), "`content` LONGBLOB,")
	assert.Contains(t, mysqlDialect.RenderCreateTable(op), "`id` VARCHAR(36) NOT NULL,")
}

func TestRenderAddForeignKey(t *testing.T) {
	fk := ForeignKey{Name: "fk_repo_owner", Table: "repositories", Columns: []string{"owner_id"}, RefTable: "users", RefColumns: []string{"id"}}

	stmt, err := postgresDialect.RenderAddForeignKey(fk)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "repositories" ADD CONSTRAINT "fk_repo_owner" FOREIGN KEY ("owner_id") REFERENCES "users" ("id")`, stmt)

	_, err = sqliteDialect.RenderAddForeignKey(fk)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestOperationValidate(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
	}{
		{"column without table", AddColumn{Column: "a", Definition: "TEXT"}},
		{"column without name", AddColumn{Table: "t", Definition: "TEXT"}},
		{"column without definition", AddColumn{Table: "t", Column: "a"}},
		{"index without columns", AddIndex{Table: "t", Name: "idx"}},
		{"index without name", AddIndex{Table: "t", Columns: []string{"a"}}},
		{"foreign key column mismatch", ForeignKey{Name: "fk", Table: "t", RefTable: "u", Columns: []string{"a"}}},
		{"table without columns", CreateTable{Table: "t"}},
		{"table with blank column", CreateTable{Table: "t", Columns: []Column{{Name: "a"}}}},
		{"table with bad index", CreateTable{Table: "t", Columns: []Column{{Name: "a", Definition: "TEXT"}}, Indexes: []AddIndex{{Name: "idx"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.op.validate(), ErrInvalidOperation)
		})
	}
}
