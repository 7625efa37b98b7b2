package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"profilevault/internal/backup"
	"profilevault/internal/common"
	"profilevault/internal/guest"
	"profilevault/internal/store"
)

func (a *App) printErr(err error) {
	printlnFn("Error:", err.Error())
}

// Register creates a new profile. The vault stays locked; the user logs in
// explicitly afterwards.
func (a *App) Register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Profile name", a.out)
	if err != nil {
		return err
	}
	pw, err := GetPassword(a.out, "Choose password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	confirm, err := GetPassword(a.out, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(pw) != string(confirm) {
		printlnFn("Passwords do not match")
		return nil
	}

	p, err := a.core.Profiles.CreateProfile(ctx, name, string(pw))
	if err != nil {
		a.printErr(err)
		return err
	}
	printlnFn("Profile created:", p.Name)
	return nil
}

// Login unlocks a profile by name.
func (a *App) Login(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Profile name", a.out)
	if err != nil {
		return err
	}
	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if err := a.core.Profiles.SwitchProfileByName(ctx, name, string(pw)); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			printlnFn("Invalid name or password")
		} else {
			a.printErr(err)
		}
		return err
	}
	printlnFn("Unlocked:", name)
	return nil
}

// Lock locks the active profile.
func (a *App) Lock(ctx context.Context) error {
	if err := a.core.AutoLock.Lock(ctx); err != nil {
		a.printErr(err)
		return err
	}
	printlnFn("Locked")
	return nil
}

// StoreEntry saves a value under an id, optionally tagged with a backup
// category. A running guest session takes precedence over the durable store.
func (a *App) StoreEntry(ctx context.Context) error {
	a.touch(ctx)

	id, err := GetSimpleText(a.reader, "Entry id", a.out)
	if err != nil {
		return err
	}
	value, err := GetSimpleText(a.reader, "Value", a.out)
	if err != nil {
		return err
	}

	if a.core.Guest.Active() != nil {
		if err := a.core.Guest.Store(ctx, id, value); err != nil {
			a.printErr(err)
			return err
		}
		printlnFn("Stored (guest, in memory only)")
		return nil
	}

	category, err := GetSimpleText(a.reader, "Category (empty for none)", a.out)
	if err != nil {
		return err
	}
	var metadata map[string]string
	if category != "" {
		metadata = map[string]string{store.MetadataCategoryKey: category}
	}

	if err := a.core.Store.Store(ctx, id, value, metadata); err != nil {
		a.printErr(err)
		return err
	}
	printlnFn("Stored")
	return nil
}

// Show prints a single entry.
func (a *App) Show(ctx context.Context) error {
	a.touch(ctx)

	id, err := GetSimpleText(a.reader, "Entry id", a.out)
	if err != nil {
		return err
	}

	var value string
	var found bool
	if a.core.Guest.Active() != nil {
		found, err = a.core.Guest.Retrieve(ctx, id, &value)
	} else {
		found, err = a.core.Store.Retrieve(ctx, id, &value)
	}
	if err != nil {
		a.printErr(err)
		return err
	}
	if !found {
		printlnFn("Not found:", id)
		return nil
	}
	printlnFn(id, "=", value)
	return nil
}

// List prints all entry ids.
func (a *App) List(ctx context.Context) error {
	a.touch(ctx)

	var ids []string
	var err error
	if a.core.Guest.Active() != nil {
		ids, err = a.core.Guest.ListIDs(ctx)
	} else {
		ids, err = a.core.Store.ListIDs(ctx)
	}
	if err != nil {
		a.printErr(err)
		return err
	}
	if len(ids) == 0 {
		printlnFn("(empty)")
		return nil
	}
	for _, id := range ids {
		printlnFn(" -", id)
	}
	return nil
}

// Delete removes an entry.
func (a *App) Delete(ctx context.Context) error {
	a.touch(ctx)

	id, err := GetSimpleText(a.reader, "Entry id", a.out)
	if err != nil {
		return err
	}

	if a.core.Guest.Active() != nil {
		err = a.core.Guest.ClearData(ctx, id)
	} else {
		err = a.core.Store.Delete(ctx, id)
	}
	if err != nil {
		a.printErr(err)
		return err
	}
	printlnFn("Deleted:", id)
	return nil
}

// Export writes an encrypted backup of the active profile to a file.
func (a *App) Export(ctx context.Context) error {
	a.touch(ctx)

	path, err := GetSimpleText(a.reader, "Backup file path", a.out)
	if err != nil {
		return err
	}
	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	raw, err := a.core.Backup.ExportBackup(ctx, string(pw), backup.ExportOptions{})
	if err != nil {
		a.printErr(err)
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		a.printErr(err)
		return err
	}
	printlnFn("Exported", fmt.Sprintf("%d bytes", len(raw)), "to", path)
	return nil
}

// Import restores a backup file into the active profile.
func (a *App) Import(ctx context.Context) error {
	a.touch(ctx)

	path, err := GetSimpleText(a.reader, "Backup file path", a.out)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		a.printErr(err)
		return err
	}

	header, err := a.core.Backup.ValidateBackupMetadata(raw)
	if err != nil {
		a.printErr(err)
		return err
	}
	printlnFn("Backup of profile", header.ProfileID, "created", header.CreatedAt.Format("2006-01-02 15:04"))

	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if err := a.core.Backup.ImportBackup(ctx, raw, string(pw)); err != nil {
		a.printErr(err)
		return err
	}
	printlnFn("Imported")
	return nil
}

// GuestStart begins an ephemeral guest session.
func (a *App) GuestStart(ctx context.Context) error {
	sess, err := a.core.Guest.Start(ctx, guest.Options{
		MaxDuration: a.core.Config.GuestMaxDuration,
	})
	if err != nil {
		a.printErr(err)
		return err
	}
	printlnFn("Guest session started:", sess.Profile.ID)
	printlnFn("Nothing stored in this session survives its end.")
	return nil
}

// GuestEnd terminates the guest session and reports what was discarded.
func (a *App) GuestEnd(ctx context.Context) error {
	stats, err := a.core.Guest.End(ctx)
	if err != nil {
		a.printErr(err)
		return err
	}
	printlnFn(fmt.Sprintf("Guest session ended: %d records discarded after %s",
		stats.Records, stats.Duration.Round(time.Second)))
	return nil
}

// Profiles lists registered profiles.
func (a *App) Profiles(ctx context.Context) error {
	list, err := a.core.Profiles.List(ctx)
	if err != nil {
		a.printErr(err)
		return err
	}
	if len(list) == 0 {
		printlnFn("No profiles registered")
		return nil
	}
	for _, p := range list {
		last := "never"
		if p.LastLogin != nil {
			last = p.LastLogin.Format("2006-01-02 15:04")
		}
		printlnFn(fmt.Sprintf(" - %s (last login: %s)", p.Name, last))
	}
	return nil
}
