// Package content holds the public request model of the sncontent client.
//
// Typed requests (LoadContentRequest, LoadCollectionRequest,
// QueryContentRequest, LoadReferenceRequest, OperationRequest, UploadRequest
// and the generic ContentRequest) expose both typed fields and a raw
// ParameterBag. Well-known keys written through the bag update the typed
// fields; anything else is passed through to the query string untouched.
//
//	req := &content.LoadCollectionRequest{}
//	req.Path = "/Root/Content/Docs"
//	_ = req.Parameters().Add("$top", "5")
//	_ = req.Parameters().Add("$orderby", "Name, CreationDate desc")
//	odata, err := req.ToODataRequest("https://example.com")
//	// odata.URL() → https://example.com/OData.svc/Root/Content/Docs?$top=5&$orderby=Name%2CCreationDate+desc
//
// The package also defines the byte Cache abstraction with memory, NATS KV
// and Redis backends, the Logger interface, and the HTTP interceptor chain
// used by the transport.
package content
