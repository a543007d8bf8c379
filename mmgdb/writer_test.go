package mmgdb

import "testing"

func TestUpdateRecordsCreateOnlyThenMerge(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateCollection(usersDef()); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	docs := rawDocs(t, map[string]interface{}{
		"id": "u1", "email": "u1@example.com", "age": 30.0, "tag": "a",
	})
	report, err := db.UpdateRecords("users", docs, CreateOnly)
	if err != nil {
		t.Fatalf("UpdateRecords: %v", err)
	}
	if report.Created != 1 || report.Updated != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// A second CreateOnly of the same primary key is skipped, not applied.
	docs2 := rawDocs(t, map[string]interface{}{
		"id": "u1", "email": "u1@example.com", "age": 99.0, "tag": "a",
	})
	report, err = db.UpdateRecords("users", docs2, CreateOnly)
	if err != nil {
		t.Fatalf("UpdateRecords: %v", err)
	}
	if report.Created != 0 || report.Updated != 0 || report.Skipped != 1 {
		t.Fatalf("expected the duplicate create to be skipped, got %+v", report)
	}

	// Merge updates the existing record.
	report, err = db.UpdateRecords("users", docs2, Merge)
	if err != nil {
		t.Fatalf("UpdateRecords: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("expected an update, got %+v", report)
	}
}

func TestUpdateRecordsUpdateOnlySkipsNewDocuments(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateCollection(usersDef()); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	docs := rawDocs(t, map[string]interface{}{
		"id": "u1", "email": "u1@example.com", "age": 30.0, "tag": "a",
	})
	report, err := db.UpdateRecords("users", docs, UpdateOnly)
	if err != nil {
		t.Fatalf("UpdateRecords: %v", err)
	}
	if report.Created != 0 || report.Updated != 0 || report.Skipped != 1 {
		t.Fatalf("expected the new document to be skipped under UpdateOnly, got %+v", report)
	}
}

func TestUpdateRecordsRejectsUniqueConflict(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateCollection(usersDef()); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	docs := rawDocs(t,
		map[string]interface{}{"id": "u1", "email": "shared@example.com", "age": 30.0, "tag": "a"},
	)
	if _, err := db.UpdateRecords("users", docs, Merge); err != nil {
		t.Fatalf("UpdateRecords: %v", err)
	}

	conflicting := rawDocs(t,
		map[string]interface{}{"id": "u2", "email": "shared@example.com", "age": 40.0, "tag": "b"},
	)
	report, err := db.UpdateRecords("users", conflicting, Merge)
	if err != nil {
		t.Fatalf("UpdateRecords: %v", err)
	}
	if len(report.Conflicts) != 1 || report.Conflicts[0] != "u2" {
		t.Fatalf("expected u2 to be reported as a unique conflict, got %+v", report)
	}
	if _, err := db.GetCollection("users"); err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
}

func TestUpdateRecordsSkipsMissingPrimaryKey(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateCollection(usersDef()); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	report, err := db.UpdateRecords("users", rawDocs(t, map[string]interface{}{"email": "no-id@example.com"}), Merge)
	if err != nil {
		t.Fatalf("UpdateRecords: %v", err)
	}
	if report.Skipped != 1 || report.Created != 0 {
		t.Fatalf("expected the document missing its primary key to be skipped, got %+v", report)
	}
}
