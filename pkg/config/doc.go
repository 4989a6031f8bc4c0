/*
Package config loads the JSON configuration document that names and
parameterizes each supervisor process.

The document is a JSON array of per-process configuration records, keyed by
their processname field. Required-field validation is lazy: Load and Get
never reject a record for missing fields, but Record.Require does, the first
time a consumer asks for a field it actually needs.
*/
package config
