// Package repository define las entidades del control plane de authmanager
// y los contratos de persistencia. Las implementaciones viven en
// internal/store/pg (producción) e internal/store/memory (dev y tests).
package repository
