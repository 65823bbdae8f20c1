package migrations

import (
	"github.com/example/colgit/internal/persistence/gateway"
	"github.com/example/colgit/internal/persistence/schema"
)

// Portable spellings used throughout 001: ENUM columns are VARCHAR(20) with
// the same default, DATETIME is TIMESTAMP and unsigned integers are signed.

func id() schema.Column {
	return schema.Column{Name: "id", Definition: "VARCHAR(36) NOT NULL"}
}

func ref(name string, nullable bool) schema.Column {
	if nullable {
		return schema.Column{Name: name, Definition: "VARCHAR(36)"}
	}
	return schema.Column{Name: name, Definition: "VARCHAR(36) NOT NULL"}
}

func createdAt() schema.Column {
	return schema.Column{Name: "created_at", Definition: "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"}
}

func timestamps() []schema.Column {
	return []schema.Column{
		createdAt(),
		{Name: "updated_at", Definition: "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"},
	}
}

func columns(cols []schema.Column, trailing ...schema.Column) []schema.Column {
	return append(cols, trailing...)
}

func cascade(name, column, refTable string) schema.ForeignKey {
	return schema.ForeignKey{
		Name:       name,
		Columns:    []string{column},
		RefTable:   refTable,
		RefColumns: []string{"id"},
		OnDelete:   "CASCADE",
	}
}

func setNull(name, column, refTable string) schema.ForeignKey {
	fk := cascade(name, column, refTable)
	fk.OnDelete = "SET NULL"
	return fk
}

func index(name string, cols ...string) schema.AddIndex {
	return schema.AddIndex{Name: name, Columns: cols}
}

func unique(name string, cols ...string) schema.AddIndex {
	return schema.AddIndex{Name: name, Columns: cols, Unique: true}
}

// link is a many-to-many table keyed by its two references, both cascading.
func link(table, left, leftRef, right, rightRef string, extra ...schema.Column) schema.CreateTable {
	cols := []schema.Column{ref(left, false), ref(right, false)}
	cols = append(cols, extra...)
	return schema.CreateTable{
		Table:      table,
		Columns:    cols,
		PrimaryKey: []string{left, right},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_"+table+"_"+left, left, leftRef),
			cascade("fk_"+table+"_"+right, right, rightRef),
		},
	}
}

// initialSchema is the complete col-git schema as of 001, in dependency
// order.
func initialSchema() []schema.Operation {
	var ops []schema.Operation
	for _, group := range [][]schema.CreateTable{
		accountTables(),
		codeTables(),
		workspaceTables(),
		communityTables(),
		planningTables(),
		chatTables(),
		profileTables(),
		securityTables(),
		systemTables(),
	} {
		for _, table := range group {
			ops = append(ops, table)
		}
	}
	return ops
}

func accountTables() []schema.CreateTable {
	users := schema.CreateTable{
		Table: "users",
		Columns: columns([]schema.Column{
			id(),
			{Name: "username", Definition: "VARCHAR(50) NOT NULL"},
			{Name: "email", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "password_hash", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "full_name", Definition: "VARCHAR(100)"},
			{Name: "avatar_url", Definition: "VARCHAR(255)"},
			{Name: "bio", Definition: "TEXT"},
			{Name: "location", Definition: "VARCHAR(100)"},
			{Name: "professional_title", Definition: "VARCHAR(100)"},
			{Name: "provider", Definition: "VARCHAR(20) NOT NULL DEFAULT 'email'"},
			{Name: "provider_id", Definition: "VARCHAR(255)"},
			{Name: "role", Definition: "VARCHAR(20) NOT NULL DEFAULT 'user'"},
			{Name: "is_active", Definition: "BOOLEAN NOT NULL DEFAULT TRUE"},
			{Name: "is_verified", Definition: "BOOLEAN NOT NULL DEFAULT FALSE"},
			{Name: "last_login", Definition: "TIMESTAMP NULL"},
		}, timestamps()...),
		PrimaryKey: []string{"id"},
		Indexes: []schema.AddIndex{
			unique("idx_username", "username"),
			unique("idx_email", "email"),
			index("idx_role", "role"),
		},
	}

	permissions := schema.CreateTable{
		Table: "permissions",
		Columns: columns([]schema.Column{
			id(),
			{Name: "name", Definition: "VARCHAR(50) NOT NULL"},
			{Name: "description", Definition: "TEXT"},
		}, timestamps()...),
		PrimaryKey: []string{"id"},
		Indexes:    []schema.AddIndex{unique("uq_permissions_name", "name")},
	}

	userPermissions := link("user_permissions", "user_id", "users", "permission_id", "permissions", createdAt())
	userPermissions.ForeignKeys = []schema.ForeignKey{
		cascade("fk_user_permissions_user", "user_id", "users"),
		cascade("fk_user_permissions_permission", "permission_id", "permissions"),
	}

	return []schema.CreateTable{users, permissions, userPermissions}
}

func codeTables() []schema.CreateTable {
	repositories := schema.CreateTable{
		Table: "repositories",
		Columns: columns([]schema.Column{
			id(),
			{Name: "name", Definition: "VARCHAR(100) NOT NULL"},
			{Name: "description", Definition: "TEXT"},
			ref("owner_id", false),
			{Name: "is_public", Definition: "BOOLEAN NOT NULL DEFAULT FALSE"},
			{Name: "default_branch", Definition: "VARCHAR(50) NOT NULL DEFAULT 'main'"},
		}, timestamps()...),
		PrimaryKey:  []string{"id"},
		ForeignKeys: []schema.ForeignKey{cascade("fk_repositories_owner", "owner_id", "users")},
		Indexes: []schema.AddIndex{
			unique("unique_repo_name_per_owner", "owner_id", "name"),
			index("idx_repo_name", "name"),
			index("idx_repo_visibility", "is_public"),
		},
	}

	collaborators := link("repository_collaborators", "repository_id", "repositories", "user_id", "users",
		columns([]schema.Column{{Name: "role", Definition: "VARCHAR(20) NOT NULL DEFAULT 'read'"}}, timestamps()...)...)

	branches := schema.CreateTable{
		Table: "branches",
		Columns: columns([]schema.Column{
			id(),
			ref("repository_id", false),
			{Name: "name", Definition: "VARCHAR(100) NOT NULL"},
			ref("created_by", false),
		}, timestamps()...),
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_branches_repository_id", "repository_id", "repositories"),
			cascade("fk_branches_created_by", "created_by", "users"),
		},
		Indexes: []schema.AddIndex{unique("unique_branch_name_per_repo", "repository_id", "name")},
	}

	commits := schema.CreateTable{
		Table: "commits",
		Columns: []schema.Column{
			id(),
			ref("repository_id", false),
			ref("branch_id", false),
			ref("author_id", false),
			{Name: "message", Definition: "TEXT NOT NULL"},
			{Name: "hash", Definition: "VARCHAR(40) NOT NULL"},
			{Name: "parent_hash", Definition: "VARCHAR(40)"},
			createdAt(),
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_commits_repository_id", "repository_id", "repositories"),
			cascade("fk_commits_branch_id", "branch_id", "branches"),
			cascade("fk_commits_author_id", "author_id", "users"),
		},
		Indexes: []schema.AddIndex{
			index("idx_commit_hash", "hash"),
			index("idx_commit_repo_branch", "repository_id", "branch_id"),
		},
	}

	files := schema.CreateTable{
		Table: "files",
		Columns: columns([]schema.Column{
			id(),
			ref("repository_id", false),
			{Name: "path", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "name", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "size", Definition: "BIGINT"},
			{Name: "mime_type", Definition: "VARCHAR(100)"},
			ref("last_commit_id", true),
		}, timestamps()...),
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_files_repository_id", "repository_id", "repositories"),
			setNull("fk_files_last_commit_id", "last_commit_id", "commits"),
		},
		Indexes: []schema.AddIndex{unique("unique_file_path_per_repo", "repository_id", "path", "name")},
	}

	fileVersions := schema.CreateTable{
		Table: "file_versions",
		Columns: []schema.Column{
			id(),
			ref("file_id", false),
			ref("commit_id", false),
			{Name: "content", Definition: "BLOB", Overrides: map[gateway.Engine]string{
				gateway.EnginePostgres: "BYTEA",
				gateway.EngineMySQL:    "LONGBLOB",
			}},
			createdAt(),
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_file_versions_file_id", "file_id", "files"),
			cascade("fk_file_versions_commit_id", "commit_id", "commits"),
		},
	}

	return []schema.CreateTable{repositories, collaborators, branches, commits, files, fileVersions}
}

func workspaceTables() []schema.CreateTable {
	workspaces := schema.CreateTable{
		Table: "workspaces",
		Columns: columns([]schema.Column{
			id(),
			{Name: "name", Definition: "VARCHAR(100) NOT NULL"},
			{Name: "description", Definition: "TEXT"},
			ref("owner_id", false),
			{Name: "is_public", Definition: "BOOLEAN NOT NULL DEFAULT FALSE"},
		}, timestamps()...),
		PrimaryKey:  []string{"id"},
		ForeignKeys: []schema.ForeignKey{cascade("fk_workspaces_owner_id", "owner_id", "users")},
		Indexes: []schema.AddIndex{
			index("idx_workspace_name", "name"),
			index("idx_workspace_visibility", "is_public"),
		},
	}

	members := link("workspace_members", "workspace_id", "workspaces", "user_id", "users",
		columns([]schema.Column{{Name: "role", Definition: "VARCHAR(20) NOT NULL DEFAULT 'member'"}}, timestamps()...)...)

	repositories := link("workspace_repositories", "workspace_id", "workspaces", "repository_id", "repositories", createdAt())

	return []schema.CreateTable{workspaces, members, repositories}
}

func communityTables() []schema.CreateTable {
	// avatar_url arrives with 002.
	communities := schema.CreateTable{
		Table: "communities",
		Columns: columns([]schema.Column{
			id(),
			{Name: "name", Definition: "VARCHAR(100) NOT NULL"},
			{Name: "description", Definition: "TEXT"},
			ref("owner_id", false),
			{Name: "is_public", Definition: "BOOLEAN NOT NULL DEFAULT TRUE"},
		}, timestamps()...),
		PrimaryKey:  []string{"id"},
		ForeignKeys: []schema.ForeignKey{cascade("fk_communities_owner", "owner_id", "users")},
		Indexes:     []schema.AddIndex{unique("idx_community_name", "name")},
	}

	members := link("community_members", "community_id", "communities", "user_id", "users",
		columns([]schema.Column{{Name: "role", Definition: "VARCHAR(20) NOT NULL DEFAULT 'member'"}}, timestamps()...)...)
	members.ForeignKeys = []schema.ForeignKey{
		cascade("fk_community_members_community", "community_id", "communities"),
		cascade("fk_community_members_user", "user_id", "users"),
	}
	members.Indexes = []schema.AddIndex{index("idx_community_members_user", "user_id")}

	messages := schema.CreateTable{
		Table: "community_messages",
		Columns: columns([]schema.Column{
			id(),
			ref("community_id", false),
			ref("user_id", false),
			{Name: "content", Definition: "TEXT NOT NULL"},
			ref("reply_to", true),
		}, timestamps()...),
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_community_messages_community_id", "community_id", "communities"),
			cascade("fk_community_messages_user_id", "user_id", "users"),
			setNull("fk_community_messages_reply_to", "reply_to", "community_messages"),
		},
	}

	tags := link("message_tags", "message_id", "community_messages", "user_id", "users", createdAt())

	return []schema.CreateTable{communities, members, messages, tags}
}

func planningTables() []schema.CreateTable {
	tasks := schema.CreateTable{
		Table: "tasks",
		Columns: columns([]schema.Column{
			id(),
			{Name: "title", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "description", Definition: "TEXT"},
			{Name: "status", Definition: "VARCHAR(20) NOT NULL DEFAULT 'pending'"},
			{Name: "priority", Definition: "VARCHAR(20) NOT NULL DEFAULT 'medium'"},
			{Name: "due_date", Definition: "DATE"},
			ref("creator_id", false),
			ref("assignee_id", true),
			ref("repository_id", true),
			ref("workspace_id", true),
		}, timestamps()...),
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_tasks_creator_id", "creator_id", "users"),
			setNull("fk_tasks_assignee_id", "assignee_id", "users"),
			cascade("fk_tasks_repository_id", "repository_id", "repositories"),
			cascade("fk_tasks_workspace_id", "workspace_id", "workspaces"),
		},
		Indexes: []schema.AddIndex{
			index("idx_task_status", "status"),
			index("idx_task_due_date", "due_date"),
		},
	}

	notes := schema.CreateTable{
		Table: "notes",
		Columns: columns([]schema.Column{
			id(),
			{Name: "title", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "content", Definition: "TEXT"},
			ref("user_id", false),
			ref("repository_id", true),
			ref("workspace_id", true),
			{Name: "is_public", Definition: "BOOLEAN NOT NULL DEFAULT FALSE"},
		}, timestamps()...),
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_notes_user_id", "user_id", "users"),
			cascade("fk_notes_repository_id", "repository_id", "repositories"),
			cascade("fk_notes_workspace_id", "workspace_id", "workspaces"),
		},
	}

	events := schema.CreateTable{
		Table: "calendar_events",
		Columns: columns([]schema.Column{
			id(),
			{Name: "title", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "description", Definition: "TEXT"},
			{Name: "start_date", Definition: "TIMESTAMP NOT NULL"},
			{Name: "end_date", Definition: "TIMESTAMP NOT NULL"},
			{Name: "all_day", Definition: "BOOLEAN NOT NULL DEFAULT FALSE"},
			ref("user_id", false),
			ref("workspace_id", true),
		}, timestamps()...),
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_calendar_events_user_id", "user_id", "users"),
			cascade("fk_calendar_events_workspace_id", "workspace_id", "workspaces"),
		},
		Indexes: []schema.AddIndex{index("idx_event_dates", "start_date", "end_date")},
	}

	participants := link("event_participants", "event_id", "calendar_events", "user_id", "users",
		columns([]schema.Column{{Name: "status", Definition: "VARCHAR(20) NOT NULL DEFAULT 'pending'"}}, timestamps()...)...)

	return []schema.CreateTable{tasks, notes, events, participants}
}

func chatTables() []schema.CreateTable {
	chats := schema.CreateTable{
		Table: "chats",
		Columns: columns([]schema.Column{
			id(),
			{Name: "type", Definition: "VARCHAR(20) NOT NULL"},
			{Name: "name", Definition: "VARCHAR(100)"},
			ref("created_by", false),
		}, timestamps()...),
		PrimaryKey:  []string{"id"},
		ForeignKeys: []schema.ForeignKey{cascade("fk_chats_created_by", "created_by", "users")},
	}

	participants := link("chat_participants", "chat_id", "chats", "user_id", "users",
		schema.Column{Name: "role", Definition: "VARCHAR(20) NOT NULL DEFAULT 'member'"},
		createdAt(),
	)

	messages := schema.CreateTable{
		Table: "chat_messages",
		Columns: []schema.Column{
			id(),
			ref("chat_id", false),
			ref("sender_id", false),
			{Name: "content", Definition: "TEXT"},
			{Name: "type", Definition: "VARCHAR(20) NOT NULL DEFAULT 'text'"},
			{Name: "file_url", Definition: "VARCHAR(255)"},
			createdAt(),
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_chat_messages_chat_id", "chat_id", "chats"),
			cascade("fk_chat_messages_sender_id", "sender_id", "users"),
		},
		Indexes: []schema.AddIndex{index("idx_chat_messages", "chat_id", "created_at")},
	}

	reads := link("message_reads", "message_id", "chat_messages", "user_id", "users",
		schema.Column{Name: "read_at", Definition: "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"})

	notifications := schema.CreateTable{
		Table: "notifications",
		Columns: []schema.Column{
			id(),
			ref("user_id", false),
			{Name: "type", Definition: "VARCHAR(50) NOT NULL"},
			{Name: "title", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "message", Definition: "TEXT"},
			{Name: "is_read", Definition: "BOOLEAN NOT NULL DEFAULT FALSE"},
			ref("related_id", true),
			{Name: "related_type", Definition: "VARCHAR(50)"},
			createdAt(),
		},
		PrimaryKey:  []string{"id"},
		ForeignKeys: []schema.ForeignKey{cascade("fk_notifications_user_id", "user_id", "users")},
		Indexes:     []schema.AddIndex{index("idx_notification_user", "user_id", "is_read", "created_at")},
	}

	return []schema.CreateTable{chats, participants, messages, reads, notifications}
}

func profileTables() []schema.CreateTable {
	followers := link("followers", "follower_id", "users", "following_id", "users", createdAt())
	contacts := link("contacts", "user_id", "users", "contact_id", "users", createdAt())

	interests := func(table string) schema.CreateTable {
		return schema.CreateTable{
			Table: table,
			Columns: []schema.Column{
				id(),
				{Name: "name", Definition: "VARCHAR(100) NOT NULL"},
				createdAt(),
			},
			PrimaryKey: []string{"id"},
			Indexes:    []schema.AddIndex{unique("uq_"+table+"_name", "name")},
		}
	}

	socialNetworks := schema.CreateTable{
		Table: "social_networks",
		Columns: columns([]schema.Column{
			id(),
			ref("user_id", false),
			{Name: "network", Definition: "VARCHAR(50) NOT NULL"},
			{Name: "url", Definition: "VARCHAR(255) NOT NULL"},
		}, timestamps()...),
		PrimaryKey:  []string{"id"},
		ForeignKeys: []schema.ForeignKey{cascade("fk_social_networks_user_id", "user_id", "users")},
		Indexes:     []schema.AddIndex{unique("unique_user_network", "user_id", "network")},
	}

	activity := schema.CreateTable{
		Table: "user_activity",
		Columns: []schema.Column{
			id(),
			ref("user_id", false),
			{Name: "activity_type", Definition: "VARCHAR(50) NOT NULL"},
			{Name: "activity_date", Definition: "DATE NOT NULL"},
			{Name: "hours_spent", Definition: "DECIMAL(5,2) NOT NULL DEFAULT 0"},
			ref("repository_id", true),
			ref("workspace_id", true),
			createdAt(),
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			cascade("fk_user_activity_user_id", "user_id", "users"),
			setNull("fk_user_activity_repository_id", "repository_id", "repositories"),
			setNull("fk_user_activity_workspace_id", "workspace_id", "workspaces"),
		},
		Indexes: []schema.AddIndex{index("idx_user_activity_date", "user_id", "activity_date")},
	}

	return []schema.CreateTable{
		followers,
		contacts,
		interests("developer_interests"),
		interests("personal_interests"),
		link("user_developer_interests", "user_id", "users", "interest_id", "developer_interests", createdAt()),
		link("user_personal_interests", "user_id", "users", "interest_id", "personal_interests", createdAt()),
		socialNetworks,
		activity,
	}
}

func securityTables() []schema.CreateTable {
	sessions := schema.CreateTable{
		Table: "sessions",
		Columns: columns([]schema.Column{
			id(),
			ref("user_id", false),
			{Name: "token", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "expires_at", Definition: "TIMESTAMP NOT NULL"},
			{Name: "ip_address", Definition: "VARCHAR(45)"},
			{Name: "user_agent", Definition: "TEXT"},
		}, timestamps()...),
		PrimaryKey:  []string{"id"},
		ForeignKeys: []schema.ForeignKey{cascade("fk_sessions_user_id", "user_id", "users")},
		Indexes: []schema.AddIndex{
			index("idx_session_token", "token"),
			index("idx_session_expiry", "expires_at"),
		},
	}

	settings := schema.CreateTable{
		Table: "user_settings",
		Columns: columns([]schema.Column{
			ref("user_id", false),
			{Name: "language", Definition: "VARCHAR(10) NOT NULL DEFAULT 'en'"},
			{Name: "theme", Definition: "VARCHAR(20) NOT NULL DEFAULT 'dark'"},
			{Name: "notification_preferences", Definition: "JSON"},
		}, timestamps()...),
		PrimaryKey:  []string{"user_id"},
		ForeignKeys: []schema.ForeignKey{cascade("fk_user_settings_user_id", "user_id", "users")},
	}

	token := func(table, tokenIndex, expiryIndex string) schema.CreateTable {
		return schema.CreateTable{
			Table: table,
			Columns: []schema.Column{
				id(),
				ref("user_id", false),
				{Name: "token", Definition: "VARCHAR(255) NOT NULL"},
				{Name: "expires_at", Definition: "TIMESTAMP NOT NULL"},
				createdAt(),
			},
			PrimaryKey:  []string{"id"},
			ForeignKeys: []schema.ForeignKey{cascade("fk_"+table+"_user_id", "user_id", "users")},
			Indexes: []schema.AddIndex{
				index(tokenIndex, "token"),
				index(expiryIndex, "expires_at"),
			},
		}
	}

	// target_id points at a workspace, repository or community depending on
	// type, so it carries no foreign key.
	invitations := schema.CreateTable{
		Table: "invitations",
		Columns: []schema.Column{
			id(),
			{Name: "email", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "token", Definition: "VARCHAR(255) NOT NULL"},
			{Name: "type", Definition: "VARCHAR(20) NOT NULL"},
			ref("target_id", false),
			ref("inviter_id", false),
			{Name: "role", Definition: "VARCHAR(50)"},
			{Name: "expires_at", Definition: "TIMESTAMP NOT NULL"},
			createdAt(),
		},
		PrimaryKey: []string{"id"},
		Indexes: []schema.AddIndex{
			index("idx_invitation_token", "token"),
			index("idx_invitation_email", "email"),
			index("idx_invitation_expiry", "expires_at"),
		},
	}

	return []schema.CreateTable{
		sessions,
		settings,
		token("password_reset_tokens", "idx_reset_token", "idx_reset_expiry"),
		token("email_verification_tokens", "idx_verification_token", "idx_verification_expiry"),
		invitations,
	}
}

func systemTables() []schema.CreateTable {
	settings := schema.CreateTable{
		Table: "system_settings",
		Columns: columns([]schema.Column{
			id(),
			{Name: "key", Definition: "VARCHAR(100) NOT NULL"},
			{Name: "value", Definition: "TEXT"},
		}, timestamps()...),
		PrimaryKey: []string{"id"},
		Indexes:    []schema.AddIndex{unique("uq_system_settings_key", "key")},
	}

	// Audit rows outlive the users they mention.
	audit := schema.CreateTable{
		Table: "audit_logs",
		Columns: []schema.Column{
			id(),
			ref("user_id", true),
			{Name: "action", Definition: "VARCHAR(100) NOT NULL"},
			{Name: "entity_type", Definition: "VARCHAR(50)"},
			ref("entity_id", true),
			{Name: "details", Definition: "JSON"},
			{Name: "ip_address", Definition: "VARCHAR(45)"},
			{Name: "user_agent", Definition: "TEXT"},
			createdAt(),
		},
		PrimaryKey: []string{"id"},
		Indexes: []schema.AddIndex{
			index("idx_audit_user", "user_id"),
			index("idx_audit_action", "action"),
			index("idx_audit_entity", "entity_type", "entity_id"),
		},
	}

	return []schema.CreateTable{settings, audit}
}
