// Package migrations embeds SQL migration files.
package migrations

import "embed"

// ControlPlaneFS contiene las migraciones del control plane de authmanager.
//
//go:embed controlplane/*.sql
var ControlPlaneFS embed.FS

// ControlPlaneDir is the directory within ControlPlaneFS where migrations live.
const ControlPlaneDir = "controlplane"
