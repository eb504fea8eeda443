//go:build swag

package swaggerkit

import docs "claimguard/internal/services/api/docs"

// generated by swag init into internal/services/api/docs
var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }
