// Package domain contains the core concepts of the render-and-capture service:
// the per-request RenderRequest, the resulting Artifact, the font delivery
// strategies and the error kinds surfaced to clients.
//
// Keep this package free of transport (HTTP) and infrastructure (Redis/Chrome) concerns.
package domain
