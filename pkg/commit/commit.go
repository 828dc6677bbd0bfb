// Package commit writes metadata back into binaries: backup first, then
// replace the section in place. There is no rollback; the backup is the
// operator's recovery path.
package commit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/albertocavalcante/srcmeta/internal/log"
	"github.com/albertocavalcante/srcmeta/pkg/metadata"
	"github.com/albertocavalcante/srcmeta/pkg/section"
)

// DefaultBackupSuffix is appended to the binary path to name its backup.
const DefaultBackupSuffix = ".bak"

// BackupPolicy controls the copy made before a binary is modified.
type BackupPolicy struct {
	Enabled   bool
	Suffix    string
	Overwrite bool
}

// DefaultBackupPolicy backs up to <binary>.bak and refuses to overwrite.
func DefaultBackupPolicy() BackupPolicy {
	return BackupPolicy{Enabled: true, Suffix: DefaultBackupSuffix}
}

func (p BackupPolicy) suffix() string {
	if p.Suffix == "" {
		return DefaultBackupSuffix
	}
	return p.Suffix
}

// Result describes a committed binary.
type Result struct {
	Binary string
	// Backup is the backup path, empty when no backup was made.
	Backup string
	// Bytes is the size of the written payload.
	Bytes int
	// Digest is the xxHash64 of the written payload.
	Digest string
	// Unchanged is set by Rewrite when the payload equals what the section
	// held before. The section is rewritten regardless.
	Unchanged bool
}

// Committer writes documents into binaries through a section.IO.
type Committer struct {
	IO section.IO
	// Section defaults to section.DefaultName.
	Section string
	// NulSeparators embeds line breaks as NUL bytes, the layout the
	// compiler plugin produces.
	NulSeparators bool
	Logger        *slog.Logger
}

func (c *Committer) sectionName() string {
	if c.Section == "" {
		return section.DefaultName
	}
	return c.Section
}

func (c *Committer) logger() *slog.Logger {
	return log.OrDiscard(c.Logger)
}

// Payload encodes doc the way it is embedded.
func (c *Committer) Payload(doc *metadata.Document) ([]byte, error) {
	data, err := metadata.Encode(doc)
	if err != nil {
		return nil, err
	}
	if c.NulSeparators {
		data = bytes.ReplaceAll(data, []byte{'\n'}, []byte{0})
	}
	return data, nil
}

// Commit backs up binary according to policy, encodes doc and replaces
// the section contents with it.
func (c *Committer) Commit(ctx context.Context, binary string, doc *metadata.Document, policy BackupPolicy) (*Result, error) {
	payload, err := c.Payload(doc)
	if err != nil {
		return nil, err
	}
	return c.write(ctx, binary, payload, policy)
}

func (c *Committer) write(ctx context.Context, binary string, payload []byte, policy BackupPolicy) (*Result, error) {
	if len(payload) == 0 {
		return nil, errors.New("encoded metadata is empty")
	}

	backup, err := c.backup(ctx, binary, policy)
	if err != nil {
		return nil, err
	}
	if err := c.IO.WriteSection(ctx, binary, c.sectionName(), payload); err != nil {
		return nil, err
	}

	res := &Result{
		Binary: binary,
		Backup: backup,
		Bytes:  len(payload),
		Digest: Digest(payload),
	}
	c.logger().Info("updated metadata",
		"binary", binary,
		"section", c.sectionName(),
		"bytes", res.Bytes,
		"digest", res.Digest,
		"backup", backup)
	return res, nil
}

// Rewrite reads the section of binary, passes the decoded documents to
// transform and commits the document it returns.
func (c *Committer) Rewrite(ctx context.Context, binary string, policy BackupPolicy,
	transform func([]*metadata.Document) (*metadata.Document, error),
) (*Result, error) {
	raw, err := c.IO.ReadSection(ctx, binary, c.sectionName())
	if err != nil {
		return nil, err
	}
	docs, err := metadata.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	doc, err := transform(docs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", binary, err)
	}

	payload, err := c.Payload(doc)
	if err != nil {
		return nil, err
	}
	res, err := c.write(ctx, binary, payload, policy)
	if err != nil {
		return nil, err
	}
	res.Unchanged = bytes.Equal(trimPadding(payload), trimPadding(raw))
	if res.Unchanged {
		c.logger().Debug("payload unchanged", "binary", binary)
	}
	return res, nil
}

// Strip backs up binary according to policy and removes the section. A
// binary without the section is reported with section.ErrSectionNotFound
// and left untouched.
func (c *Committer) Strip(ctx context.Context, binary string, policy BackupPolicy) (*Result, error) {
	if _, err := c.IO.ReadSection(ctx, binary, c.sectionName()); err != nil {
		return nil, err
	}
	backup, err := c.backup(ctx, binary, policy)
	if err != nil {
		return nil, err
	}
	if err := c.IO.RemoveSection(ctx, binary, c.sectionName()); err != nil {
		return nil, err
	}
	c.logger().Info("removed metadata", "binary", binary, "section", c.sectionName(), "backup", backup)
	return &Result{Binary: binary, Backup: backup}, nil
}

// trimPadding drops the trailing NULs and line breaks a section may be
// padded with.
func trimPadding(b []byte) []byte {
	return bytes.TrimRight(b, "\x00\n")
}

func (c *Committer) backup(ctx context.Context, binary string, policy BackupPolicy) (string, error) {
	if !policy.Enabled {
		return "", nil
	}
	dst := binary + policy.suffix()

	exists, err := c.IO.Exists(ctx, dst)
	if err != nil {
		return "", fmt.Errorf("check backup %s: %w", dst, err)
	}
	if exists && !policy.Overwrite {
		return "", &BackupExistsError{Path: dst}
	}
	if err := c.IO.CopyFile(ctx, binary, dst); err != nil {
		return "", fmt.Errorf("backup %s: %w", binary, err)
	}
	c.logger().Debug("created backup", "binary", binary, "backup", dst, "overwrote", exists)
	return dst, nil
}
