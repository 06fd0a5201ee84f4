package storage

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"fmt"

	"gorm.io/gorm"
)

// notifyTriggerSQL emits {"kind": TG_OP, "id": ...} on every row change of complaints.
var notifyTriggerSQL = fmt.Sprintf(`
CREATE OR REPLACE FUNCTION notify_complaint_change() RETURNS trigger AS $$
BEGIN
    IF TG_OP = 'DELETE' THEN
        PERFORM pg_notify('%[1]s', json_build_object('kind', TG_OP, 'id', OLD.id)::text);
        RETURN OLD;
    END IF;
    PERFORM pg_notify('%[1]s', json_build_object('kind', TG_OP, 'id', NEW.id)::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS complaints_notify ON complaints;
CREATE TRIGGER complaints_notify
    AFTER INSERT OR UPDATE OR DELETE ON complaints
    FOR EACH ROW EXECUTE FUNCTION notify_complaint_change();
`, config.ComplaintChangesPGChannel)

// Migrate creates the tables and, in postgres feed mode, the change trigger.
func Migrate(db *gorm.DB, feed config.FeedMode) error {
	if err := db.AutoMigrate(
		&models.Agent{},
		&models.ComplaintType{},
		&models.Complaint{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if feed == config.FeedPostgres {
		if err := db.Exec(notifyTriggerSQL).Error; err != nil {
			return fmt.Errorf("install change trigger: %w", err)
		}
	}
	return nil
}
