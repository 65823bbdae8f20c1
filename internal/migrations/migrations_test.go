package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/colgit/internal/persistence/migration"
	"github.com/example/colgit/internal/persistence/schema"
	"github.com/example/colgit/internal/testfixtures"
)

var initialTables = []string{
	"users", "permissions", "user_permissions",
	"repositories", "repository_collaborators", "branches", "commits", "files", "file_versions",
	"workspaces", "workspace_members", "workspace_repositories",
	"communities", "community_members", "community_messages", "message_tags",
	"tasks", "notes", "calendar_events", "event_participants",
	"chats", "chat_participants", "chat_messages", "message_reads", "notifications",
	"followers", "contacts", "developer_interests", "personal_interests",
	"user_developer_interests", "user_personal_interests", "social_networks", "user_activity",
	"sessions", "user_settings", "password_reset_tokens", "email_verification_tokens", "invitations",
	"system_settings", "audit_logs",
}

func TestRegistry_Order(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"001_initial_schema",
		"002_add_avatar_url_to_communities",
		"003_add_indexes_to_repositories",
	}, reg.Names())
}

func TestAll_AppliesOnSQLite(t *testing.T) {
	ctx := context.Background()
	rec := testfixtures.NewRecordingGateway(testfixtures.NewSQLiteGateway(t))
	store := migration.NewSQLStore(rec)
	reg, err := Registry()
	require.NoError(t, err)

	runner := migration.NewRunner(store, rec)
	report, err := runner.Run(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, reg.Names(), report.Applied)

	m, err := schema.NewMutator(rec)
	require.NoError(t, err)

	require.Len(t, initialTables, 40)
	for _, table := range initialTables {
		exists, err := m.TableExists(ctx, table)
		require.NoError(t, err)
		assert.True(t, exists, "table %s", table)
	}

	exists, err := m.ColumnExists(ctx, "communities", "avatar_url")
	require.NoError(t, err)
	assert.True(t, exists)

	for _, idx := range []struct{ table, name string }{
		{"users", "idx_username"},
		{"repositories", "unique_repo_name_per_owner"},
		{"repositories", "idx_repo_updated_at"},
		{"communities", "idx_community_name"},
		{"branches", "unique_branch_name_per_repo"},
		{"files", "unique_file_path_per_repo"},
		{"chat_messages", "idx_chat_messages"},
		{"notifications", "idx_notification_user"},
		{"developer_interests", "uq_developer_interests_name"},
		{"system_settings", "uq_system_settings_key"},
		{"invitations", "idx_invitation_expiry"},
		{"audit_logs", "idx_audit_entity"},
	} {
		exists, err := m.IndexExists(ctx, idx.table, idx.name)
		require.NoError(t, err)
		assert.True(t, exists, "index %s", idx.name)
	}

	rec.Reset()
	report, err = runner.Run(ctx, reg)
	require.NoError(t, err)
	assert.Empty(t, report.Applied)
	assert.Equal(t, 3, report.Skipped)
	assert.Zero(t, rec.Count("ALTER"))
	assert.Zero(t, rec.Count("CREATE"))
}

func TestAll_ForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	gw := testfixtures.NewSQLiteGateway(t)
	reg, err := Registry()
	require.NoError(t, err)
	_, err = migration.NewRunner(migration.NewSQLStore(gw), gw).Run(ctx, reg)
	require.NoError(t, err)

	_, err = gw.ExecContext(ctx, `INSERT INTO repositories (id, name, owner_id) VALUES (?, ?, ?)`, "r1", "orphan", "missing-user")
	assert.Error(t, err, "repository without an owner must be rejected")
}

func TestAll_ReferentialActions(t *testing.T) {
	ctx := context.Background()
	gw := testfixtures.NewSQLiteGateway(t)
	reg, err := Registry()
	require.NoError(t, err)
	_, err = migration.NewRunner(migration.NewSQLStore(gw), gw).Run(ctx, reg)
	require.NoError(t, err)

	exec := func(query string, args ...any) {
		t.Helper()
		_, err := gw.ExecContext(ctx, query, args...)
		require.NoError(t, err, query)
	}
	exec(`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, ?)`, "u1", "owner", "owner@colgit.com", "x")
	exec(`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, ?)`, "u2", "helper", "helper@colgit.com", "x")
	exec(`INSERT INTO repositories (id, name, owner_id) VALUES (?, ?, ?)`, "r1", "colgit", "u1")
	exec(`INSERT INTO branches (id, repository_id, name, created_by) VALUES (?, ?, ?, ?)`, "b1", "r1", "main", "u1")
	exec(`INSERT INTO commits (id, repository_id, branch_id, author_id, message, hash) VALUES (?, ?, ?, ?, ?, ?)`,
		"c1", "r1", "b1", "u1", "initial", "da39a3ee5e6b4b0d3255bfef95601890afd80709")
	exec(`INSERT INTO files (id, repository_id, path, name, last_commit_id) VALUES (?, ?, ?, ?, ?)`, "f1", "r1", "/", "README.md", "c1")
	exec(`INSERT INTO file_versions (id, file_id, commit_id, content) VALUES (?, ?, ?, ?)`, "v1", "f1", "c1", []byte("# colgit\n"))
	exec(`INSERT INTO tasks (id, title, creator_id, assignee_id, repository_id) VALUES (?, ?, ?, ?, ?)`, "t1", "write docs", "u1", "u2", "r1")
	exec(`INSERT INTO system_settings (id, "key", value) VALUES (?, ?, ?)`, "s1", "site_name", "col-git")

	var content []byte
	require.NoError(t, gw.QueryRowContext(ctx, `SELECT content FROM file_versions WHERE id = ?`, "v1").Scan(&content))
	assert.Equal(t, "# colgit\n", string(content))

	var status string
	require.NoError(t, gw.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, "t1").Scan(&status))
	assert.Equal(t, "pending", status)

	// Removing the assignee keeps the task; removing the commit keeps the file.
	exec(`DELETE FROM users WHERE id = ?`, "u2")
	var assignee *string
	require.NoError(t, gw.QueryRowContext(ctx, `SELECT assignee_id FROM tasks WHERE id = ?`, "t1").Scan(&assignee))
	assert.Nil(t, assignee)

	exec(`DELETE FROM file_versions WHERE commit_id = ?`, "c1")
	exec(`DELETE FROM commits WHERE id = ?`, "c1")
	var lastCommit *string
	require.NoError(t, gw.QueryRowContext(ctx, `SELECT last_commit_id FROM files WHERE id = ?`, "f1").Scan(&lastCommit))
	assert.Nil(t, lastCommit)

	// Removing the owner cascades through the repository to its branches.
	exec(`DELETE FROM users WHERE id = ?`, "u1")
	var remaining int
	require.NoError(t, gw.QueryRowContext(ctx, `SELECT COUNT(*) FROM branches`).Scan(&remaining))
	assert.Zero(t, remaining)
}
