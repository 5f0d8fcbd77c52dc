// Package config loads datalint's settings.
//
// Values are resolved by viper in this order: command-line flags bound by
// the caller, DATALINT_* environment variables (dots become underscores,
// so store.batch_size is DATALINT_STORE_BATCH_SIZE), an optional YAML file,
// then built-in defaults. The result is validated with
// go-playground/validator before use.
//
// [Template] renders the defaults as a YAML file for `datalint config init`.
package config
