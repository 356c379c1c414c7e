// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

/*
Package config loads the service configuration.

# Configuration Sources

Values are layered with koanf, later layers overriding earlier ones:

 1. Struct defaults (defaultConfig)
 2. A YAML file: CONFIG_PATH, else the first of DefaultConfigPaths that exists
 3. Environment variables listed in envMappings

Unmapped environment variables are ignored.

# Sections

  - server: listen address, timeouts, deployment environment
  - logging: application log level and format
  - audit: trail directory, segment rotation, durability, stdout mirroring
  - index: optional BadgerDB audit_id index
  - stream: optional NATS publication of entries
  - security: CORS origins and the audit API rate limit
  - compliance: report scoring threshold

# Example

	audit:
	  dir: /var/log/chasewhiterabbit
	  sync_writes: true
	  primary:
	    max_bytes: 104857600
	    max_segments: 10
	stream:
	  enabled: true
	  url: nats://nats:4222
*/
package config
