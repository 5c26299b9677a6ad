package dto

// AccessCheckRequest verificación de acceso a una ruta. Seq = 0 asigna el siguiente número.
type AccessCheckRequest struct {
	Path string `json:"path" validate:"required"`
	Seq  uint64 `json:"seq"`
}

// AccessDecisionResponse resultado del guard de acceso.
type AccessDecisionResponse struct {
	Seq        uint64 `json:"seq"`
	Path       string `json:"path"`
	PageID     string `json:"page_id"`
	State      string `json:"state"`
	Allow      bool   `json:"allow"`
	Pending    bool   `json:"pending"`
	Retryable  bool   `json:"retryable"`
	Reason     string `json:"reason,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
	FromCache  bool   `json:"from_cache,omitempty"`
	Superseded bool   `json:"superseded,omitempty"`
	Attempts   int    `json:"attempts"`
}

// UpsertPermissionRequest alta o cambio de una fila de permisos de página.
type UpsertPermissionRequest struct {
	Role    string `json:"role" validate:"required"`
	PageID  string `json:"page_id" validate:"required"`
	Allowed bool   `json:"allowed"`
}

// PermissionResponse fila de permisos.
type PermissionResponse struct {
	Role    string `json:"role"`
	Type    string `json:"type"`
	PageID  string `json:"page_id"`
	Allowed bool   `json:"allowed"`
}
