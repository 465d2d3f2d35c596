// Package config loads, normalizes, and validates watchlog configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NOTION_TOKEN and NOTION_DATABASE_ID. The Config type centralizes the Notion
// endpoint, the target column names, queue pacing, and fuzzy-search bounds so
// the CLI and internal packages discover them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
