package domain

import "go.trai.ch/zerr"

var (
	// ErrInputMissing is returned when a declared input file, directory or glob does not resolve.
	ErrInputMissing = zerr.New("input not found")

	// ErrOutputMissing is returned when a command succeeded but a declared output was not produced.
	ErrOutputMissing = zerr.New("declared output not produced")

	// ErrExternalCommandFailed is returned when the external command exits with a non-zero status.
	// The exit code is attached as "exit_code" metadata.
	ErrExternalCommandFailed = zerr.New("external command failed")

	// ErrCommandStartFailed is returned when the external command cannot be started at all.
	ErrCommandStartFailed = zerr.New("failed to start command")

	// ErrTaskTimeout is returned when a task exceeds its configured timeout.
	ErrTaskTimeout = zerr.New("task timed out")

	// ErrTaskCanceled is returned when a task is canceled while running.
	ErrTaskCanceled = zerr.New("task canceled")

	// ErrCacheMiss is returned when a requested fingerprint is not present in a cache store.
	ErrCacheMiss = zerr.New("cache miss")

	// ErrCacheCorrupt is returned when a cache entry exists but cannot be restored faithfully.
	ErrCacheCorrupt = zerr.New("cache entry corrupt")

	// ErrTaskNotFound is returned when a requested task is not declared in the project file.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrNoTargetsSpecified is returned when no targets are specified for the run command.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrEmptyCommand is returned when a task declares no command.
	ErrEmptyCommand = zerr.New("task has no command")

	// ErrInvalidTaskName is returned when a task name contains invalid characters.
	ErrInvalidTaskName = zerr.New("invalid task name")

	// ErrInvalidSensitivity is returned when an input declares an unknown path sensitivity.
	ErrInvalidSensitivity = zerr.New("invalid path sensitivity, expected 'absolute' or 'relative'")

	// ErrInvalidTimeout is returned when a task timeout cannot be parsed.
	ErrInvalidTimeout = zerr.New("invalid task timeout")

	// ErrOutputPathOutsideRoot is returned when an output path is outside the project root.
	ErrOutputPathOutsideRoot = zerr.New("output path is outside project root")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigNotFound is returned when no project file can be found.
	ErrConfigNotFound = zerr.New("could not find stow.yaml")

	// ErrSettingsLoadFailed is returned when the settings layer cannot be read.
	ErrSettingsLoadFailed = zerr.New("failed to load settings")

	// ErrBuildExecutionFailed is returned when one or more tasks of an invocation fail.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrInputHashComputationFailed is returned when input fingerprinting fails.
	ErrInputHashComputationFailed = zerr.New("failed to compute input fingerprint")

	// ErrFailedToGetRoot is returned when the project root path cannot be determined.
	ErrFailedToGetRoot = zerr.New("failed to get absolute path of project root")

	// ErrFailedToCleanOutput is returned when removing a stale output fails.
	ErrFailedToCleanOutput = zerr.New("failed to clean output")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrPathStatFailed is returned when stating a path fails.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrStoreOpenFailed is returned when a cache store cannot be opened.
	ErrStoreOpenFailed = zerr.New("failed to open cache store")

	// ErrStoreReadFailed is returned when a cache entry cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache entry")

	// ErrStoreWriteFailed is returned when a cache entry cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cache entry")

	// ErrRestoreFailed is returned when restored files cannot be written to the destination.
	ErrRestoreFailed = zerr.New("failed to restore outputs")
)
