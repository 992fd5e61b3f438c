// Package http implements HTTP request handlers for the sales data
// cleansing service. It provides a thin layer between HTTP transport and
// business logic, keeping handlers focused solely on HTTP concerns.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - cleansing rules belong in the pipeline stages
//	5. Consistent patterns - standardized request/response handling
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → CleanseService → Pipeline
//	                                              ↓
//	HTTP Response ← Handler ← Run Outcome ←──────┘
//
// # Handler Structure
//
// Each handler follows this pattern:
//
//	func (h *Handler) HandleSomething(w http.ResponseWriter, r *http.Request) {
//	    // 1. Parse and validate request
//	    data := &someRequest{}
//	    if err := render.Bind(r, data); err != nil {
//	        render.Render(w, r, problemFor(err))
//	        return
//	    }
//
//	    // 2. Call service layer
//	    outcome, err := h.service.DoSomething(r.Context(), data)
//	    if err != nil {
//	        render.Render(w, r, apierrors.MapCleanseError(err, traceID))
//	        return
//	    }
//
//	    // 3. Format and send response
//	    render.JSON(w, r, outcome)
//	}
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/missing-columns",
//	    "title": "Required Columns Missing",
//	    "status": 422,
//	    "detail": "required columns missing: quantity, price",
//	    "instance": "/api/v1/cleanse"
//	}
//
// # WebSocket Support
//
// Run progress is pushed over Gorilla WebSocket:
//
//	- Upgrade HTTP connection to WebSocket
//	- Register client with hub
//	- Hub broadcasts run snapshots as stages complete
//	- Clean up on disconnect
package http
