package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/banners/internal/httpserver/deps"
)

type componentStatus struct {
	OK            bool   `json:"ok"`
	Backend       string `json:"backend,omitempty"`
	Operators     *int   `json:"operators,omitempty"`
	RecordsLoaded *int   `json:"records_loaded,omitempty"`
	Objects       *int64 `json:"objects,omitempty"`
	Previews      *int   `json:"previews,omitempty"`
	LastReload    string `json:"last_reload,omitempty"`
	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Reason     string                     `json:"reason,omitempty"`
	Components map[string]componentStatus `json:"components"`
}

const probeTimeout = 2 * time.Second

// Infra reports every external dependency. It never fails: broken
// components are listed with their error.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"identity":  identityStatus(d),
			"redis":     redisStatus(ctx, d),
			"objects":   objectsStatus(ctx, d),
			"documents": documentsStatus(ctx, d),
			"previews":  previewsStatus(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(d, components),
			Reason:     d.Descriptor.Reason,
			Components: components,
		})
	}
}

// determineMode is "not-configured" without a ready descriptor, "degraded"
// when a remote component is down and "ready" otherwise.
func determineMode(d deps.Deps, components map[string]componentStatus) string {
	if !d.Descriptor.Ready {
		return "not-configured"
	}
	for _, name := range []string{"identity", "redis", "objects", "documents"} {
		if !components[name].OK {
			return "degraded"
		}
	}
	return "ready"
}

func identityStatus(d deps.Deps) componentStatus {
	if d.Operators == nil {
		return componentStatus{Error: "identity provider not configured"}
	}
	n := d.Operators()
	return componentStatus{OK: n > 0, Backend: "local", Operators: &n}
}

func redisStatus(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{Error: "client not initialized"}
	}
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{Error: err.Error()}
	}
	return componentStatus{OK: true}
}

func objectsStatus(ctx context.Context, d deps.Deps) componentStatus {
	if d.Objects == nil {
		return componentStatus{Backend: "redis", Error: "object store not configured"}
	}
	n, err := d.Objects.Count(ctx)
	if err != nil {
		return componentStatus{Backend: "redis", Error: err.Error()}
	}
	return componentStatus{OK: true, Backend: "redis", Objects: &n}
}

func documentsStatus(ctx context.Context, d deps.Deps) componentStatus {
	cs := componentStatus{Backend: d.Descriptor.Documents.Driver}
	if d.Facade != nil {
		coll := d.Facade.Collection()
		n := coll.Count()
		cs.RecordsLoaded = &n
		cs.LastReload = "never"
		if t := coll.GetLastReload(); !t.IsZero() {
			cs.LastReload = t.Format(time.RFC3339)
		}
		cs.Status = d.Facade.Status()
	}

	switch {
	case !d.Descriptor.Ready:
		cs.Error = "document store not configured"
	case d.Documents != nil:
		if err := d.Documents.Ping(ctx); err != nil {
			cs.Error = err.Error()
		} else {
			cs.OK = true
		}
	case d.RedisClient != nil:
		cs.OK = d.RedisClient.Ping(ctx).Err() == nil
	}
	return cs
}

func previewsStatus(d deps.Deps) componentStatus {
	if d.Previews == nil {
		return componentStatus{OK: true}
	}
	n := d.Previews.Len()
	return componentStatus{OK: true, Previews: &n}
}
