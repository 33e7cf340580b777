// export_test.go exports private functions for white-box testing.
package logger

// Exported for the external test package.
var (
	CollectErrorEntries = collectErrorEntries
	FormatErrorEntries  = formatErrorEntries
)
