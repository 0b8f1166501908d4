// Package observability exposes the bridge's metrics in Prometheus format.
package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

const (
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrWorker   = "worker"
	attrFailed   = "failed"
	attrFull     = "full"
	attrCache    = "cache"
	attrKind     = "kind"
	attrHandler  = "handler"
	attrDecision = "decision"
	attrOutcome  = "outcome"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String(attrMethod, method)
}

// pathAttr expects a route pattern, not a raw path, to keep cardinality low.
func pathAttr(path string) attribute.KeyValue {
	if path == "" {
		path = "unmatched"
	}
	return attribute.String(attrPath, path)
}

func statusAttr(code int) attribute.KeyValue {
	return attribute.String(attrStatus, fmt.Sprintf("%dxx", code/100))
}

func workerAttr(name string) attribute.KeyValue {
	return attribute.String(attrWorker, name)
}
