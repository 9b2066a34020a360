package database

import (
	"database/sql"

	log "github.com/sirupsen/logrus"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB // Exported DB variable

// InitDB opens the database at path and creates the schema.
func InitDB(path string) error {
	var err error
	DB, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	if _, err := DB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	return createTables()
}

var schema = []struct {
	name string
	stmt string
}{
	{"users", `
        CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            email TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            session_token TEXT DEFAULT '',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );
    `},
	{"posts", `
        CREATE TABLE IF NOT EXISTS posts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            type TEXT NOT NULL CHECK (type IN ('sharing', 'ask')),
            description TEXT NOT NULL,
            category TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
        );
    `},
	{"sharing_details", `
        CREATE TABLE IF NOT EXISTS sharing_details (
            post_id INTEGER PRIMARY KEY,
            url TEXT DEFAULT '',
            expiration_date TEXT DEFAULT '',
            FOREIGN KEY (post_id) REFERENCES posts (id) ON DELETE CASCADE
        );
    `},
	{"ask_details", `
        CREATE TABLE IF NOT EXISTS ask_details (
            post_id INTEGER PRIMARY KEY,
            location TEXT DEFAULT '',
            FOREIGN KEY (post_id) REFERENCES posts (id) ON DELETE CASCADE
        );
    `},
	{"comments", `
        CREATE TABLE IF NOT EXISTS comments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            post_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            content TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (post_id) REFERENCES posts (id) ON DELETE CASCADE,
            FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
        );
    `},
	{"post_votes", `
        CREATE TABLE IF NOT EXISTS post_votes (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            post_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            vote_type TEXT NOT NULL CHECK (vote_type IN ('up', 'down')),
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (post_id, user_id),
            FOREIGN KEY (post_id) REFERENCES posts (id) ON DELETE CASCADE,
            FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
        );
    `},
	{"referrals", `
        CREATE TABLE IF NOT EXISTS referrals (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            category TEXT NOT NULL,
            url TEXT DEFAULT '',
            expiration_date TEXT DEFAULT '',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
        );
    `},
	{"password_resets", `
        CREATE TABLE IF NOT EXISTS password_resets (
            token TEXT PRIMARY KEY,
            user_id INTEGER NOT NULL,
            expires_at DATETIME NOT NULL,
            FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
        );
    `},
	{"posts_full", `
        CREATE VIEW IF NOT EXISTS posts_full AS
        SELECT p.id, p.user_id, p.title, p.type, p.description, p.category,
               p.created_at, u.email AS author,
               sd.url, sd.expiration_date, ad.location
        FROM posts p
        INNER JOIN users u ON u.id = p.user_id
        LEFT JOIN sharing_details sd ON sd.post_id = p.id
        LEFT JOIN ask_details ad ON ad.post_id = p.id;
    `},
}

func createTables() error {
	for _, s := range schema {
		if _, err := DB.Exec(s.stmt); err != nil {
			log.WithError(err).Errorf("Error creating %q", s.name)
			return err
		}
	}
	log.Info("Database schema created or already exists")
	return nil
}
