package database

import "fmt"

// EnsureTag returns the id of the named tag, creating it if needed.
func (s *Store) EnsureTag(name string) (int64, error) {
	if _, err := s.db.Exec("INSERT OR IGNORE INTO tags (name) VALUES (?)", name); err != nil {
		return 0, fmt.Errorf("ensure tag %q: %w", name, err)
	}
	var id int64
	if err := s.db.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve tag %q: %w", name, err)
	}
	return id, nil
}

// TagMedia assigns a tag to an item. Re-assigning is a no-op.
func (s *Store) TagMedia(mediaID, tagID int64) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO media_tags (media_id, tag_id) VALUES (?, ?)", mediaID, tagID)
	if err != nil {
		return fmt.Errorf("tag media %d with %d: %w", mediaID, tagID, err)
	}
	return nil
}

// TagsOf returns the tag ids assigned to an item.
func (s *Store) TagsOf(mediaID int64) ([]int64, error) {
	rows, err := s.db.Query("SELECT tag_id FROM media_tags WHERE media_id = ? ORDER BY tag_id", mediaID)
	if err != nil {
		return nil, fmt.Errorf("tags of media %d: %w", mediaID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ItemsSharingTag returns the ids of usable items carrying the given tag.
func (s *Store) ItemsSharingTag(tagID int64) ([]int64, error) {
	rows, err := s.db.Query(`SELECT mt.media_id FROM media_tags mt
		JOIN media m ON m.id = mt.media_id
		WHERE mt.tag_id = ? AND m.excluded = 0
		ORDER BY mt.media_id`, tagID)
	if err != nil {
		return nil, fmt.Errorf("items sharing tag %d: %w", tagID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
