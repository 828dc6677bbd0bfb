package commit

import "errors"

// ErrBackupExists matches any *BackupExistsError.
var ErrBackupExists = errors.New("backup file already exists")

// BackupExistsError is returned when the backup destination is taken and
// overwriting is not allowed. Nothing has been modified when it is returned.
type BackupExistsError struct {
	Path string
}

func (e *BackupExistsError) Error() string {
	return e.Path + ": backup file already exists (use --overwrite-backup or --no-backup)"
}

func (e *BackupExistsError) Is(target error) bool {
	return target == ErrBackupExists
}
