package content

import (
	"github.com/fivetwenty-io/sncontent/internal/constants"
)

// Request is implemented by every typed request. A request must not be
// copied after Parameters has been called, since the bag stays bound to the
// original's fields.
type Request interface {
	// Parameters returns the request's raw parameter bag. Well-known keys
	// added to the bag update the request's typed fields.
	Parameters() *ParameterBag
	// ToODataRequest validates the request and projects it onto the
	// canonical request for serverURL.
	ToODataRequest(serverURL string) (*ODataRequest, error)
}

// ContentRequest is the generic request used for calls no specialized
// variant covers.
type ContentRequest struct {
	EntityOptions
	QueryOptions

	Filter              string
	ContentQuery        string
	ActionName          string
	PropertyName        string
	PostData            any
	IsCollectionRequest bool

	params *ParameterBag
}

// Parameters implements Request.
func (r *ContentRequest) Parameters() *ParameterBag {
	if r.params == nil {
		r.params = bindParameters(
			paramTable{
				ParamFilter: stringParam(&r.Filter),
				ParamQuery:  stringParam(&r.ContentQuery),
			},
			r.QueryOptions.parameterTable(),
			r.EntityOptions.parameterTable(),
		)
	}

	return r.params
}

// ToODataRequest implements Request.
func (r *ContentRequest) ToODataRequest(serverURL string) (*ODataRequest, error) {
	const name = "ContentRequest"

	if err := checkTarget(name, r.ContentID, r.Path); err != nil {
		return nil, err
	}

	if r.Filter != "" && r.ContentQuery != "" {
		return nil, exclusive(name, "ContentQuery", "Filter")
	}

	req := &ODataRequest{
		ServerURL:           serverURL,
		ContentID:           r.ContentID,
		Path:                NormalizePath(r.Path),
		IsCollectionRequest: r.IsCollectionRequest,
		ActionName:          r.ActionName,
		PropertyName:        r.PropertyName,
		PostData:            r.PostData,
		Filter:              r.Filter,
		ContentQuery:        r.ContentQuery,
		Parameters:          passThrough(r.params),
	}
	r.EntityOptions.applyTo(req)
	r.QueryOptions.applyTo(req)

	return validated(req)
}

// LoadContentRequest loads a single content item by id or path.
type LoadContentRequest struct {
	EntityOptions

	params *ParameterBag
}

// Parameters implements Request.
func (r *LoadContentRequest) Parameters() *ParameterBag {
	if r.params == nil {
		r.params = bindParameters(r.EntityOptions.parameterTable())
	}

	return r.params
}

// ToODataRequest implements Request.
func (r *LoadContentRequest) ToODataRequest(serverURL string) (*ODataRequest, error) {
	if err := checkTarget("LoadContentRequest", r.ContentID, r.Path); err != nil {
		return nil, err
	}

	req := &ODataRequest{
		ServerURL:  serverURL,
		ContentID:  r.ContentID,
		Path:       NormalizePath(r.Path),
		Parameters: passThrough(r.params),
	}
	r.EntityOptions.applyTo(req)

	return validated(req)
}

// QueryContentRequest runs a content query below a subtree. The subtree
// defaults to the repository root.
type QueryContentRequest struct {
	EntityOptions
	QueryOptions

	ContentQuery string

	params *ParameterBag
}

// Parameters implements Request.
func (r *QueryContentRequest) Parameters() *ParameterBag {
	if r.params == nil {
		r.params = bindParameters(
			paramTable{ParamQuery: stringParam(&r.ContentQuery)},
			r.QueryOptions.parameterTable(),
			r.EntityOptions.parameterTable(),
		)
	}

	return r.params
}

// ToODataRequest implements Request.
func (r *QueryContentRequest) ToODataRequest(serverURL string) (*ODataRequest, error) {
	const name = "QueryContentRequest"

	path := r.Path

	switch {
	case r.ContentID > 0 && path != "":
		return nil, exclusive(name, "ContentID", "Path")
	case r.ContentID > 0:
		// Collections are addressed by path only.
		return nil, missing(name, "Path")
	case path == "":
		path = constants.RootPath
	}

	req := collectionRequest(serverURL, path, &r.EntityOptions, &r.QueryOptions, r.params)
	req.ContentQuery = r.ContentQuery

	return validated(req)
}

// LoadCollectionRequest lists the children of a container. A content query
// and a children filter cannot be combined.
type LoadCollectionRequest struct {
	EntityOptions
	QueryOptions

	ContentQuery   string
	ChildrenFilter string

	params *ParameterBag
}

// Parameters implements Request.
func (r *LoadCollectionRequest) Parameters() *ParameterBag {
	if r.params == nil {
		r.params = bindParameters(
			collectionTable(&r.ContentQuery, &r.ChildrenFilter),
			r.QueryOptions.parameterTable(),
			r.EntityOptions.parameterTable(),
		)
	}

	return r.params
}

// ToODataRequest implements Request.
func (r *LoadCollectionRequest) ToODataRequest(serverURL string) (*ODataRequest, error) {
	const name = "LoadCollectionRequest"

	if err := checkCollection(name, r.ContentID, r.Path, r.ContentQuery, r.ChildrenFilter); err != nil {
		return nil, err
	}

	req := collectionRequest(serverURL, r.Path, &r.EntityOptions, &r.QueryOptions, r.params)
	req.ContentQuery = r.ContentQuery
	req.Filter = r.ChildrenFilter

	return validated(req)
}

// LoadReferenceRequest loads the items referenced by a reference field of
// one content item. Paging, sorting and filtering apply to the referenced
// items.
type LoadReferenceRequest struct {
	EntityOptions
	QueryOptions

	FieldName string
	Filter    string

	params *ParameterBag
}

// Parameters implements Request.
func (r *LoadReferenceRequest) Parameters() *ParameterBag {
	if r.params == nil {
		r.params = bindParameters(
			paramTable{ParamFilter: stringParam(&r.Filter)},
			r.QueryOptions.parameterTable(),
			r.EntityOptions.parameterTable(),
		)
	}

	return r.params
}

// ToODataRequest implements Request.
func (r *LoadReferenceRequest) ToODataRequest(serverURL string) (*ODataRequest, error) {
	const name = "LoadReferenceRequest"

	if err := checkTarget(name, r.ContentID, r.Path); err != nil {
		return nil, err
	}

	if r.FieldName == "" {
		return nil, missing(name, "FieldName")
	}

	req := &ODataRequest{
		ServerURL:    serverURL,
		ContentID:    r.ContentID,
		Path:         NormalizePath(r.Path),
		PropertyName: r.FieldName,
		Filter:       r.Filter,
		Parameters:   passThrough(r.params),
	}
	r.EntityOptions.applyTo(req)
	r.QueryOptions.applyTo(req)

	return validated(req)
}

// OperationRequest invokes an OData function or action on one content item.
type OperationRequest struct {
	EntityOptions
	QueryOptions

	OperationName  string
	ContentQuery   string
	ChildrenFilter string
	// PostData is serialized as the request body. A nil payload makes the
	// call a function (GET); anything else an action (POST).
	PostData any

	params *ParameterBag
}

// Parameters implements Request.
func (r *OperationRequest) Parameters() *ParameterBag {
	if r.params == nil {
		r.params = bindParameters(
			collectionTable(&r.ContentQuery, &r.ChildrenFilter),
			r.QueryOptions.parameterTable(),
			r.EntityOptions.parameterTable(),
		)
	}

	return r.params
}

// ToODataRequest implements Request.
func (r *OperationRequest) ToODataRequest(serverURL string) (*ODataRequest, error) {
	const name = "OperationRequest"

	if r.OperationName == "" {
		return nil, missing(name, "OperationName")
	}

	path := r.Path
	if r.ContentID > 0 && path == "" {
		path = constants.RootPath
	} else if r.ContentID > 0 {
		return nil, exclusive(name, "ContentID", "Path")
	}

	if err := checkCollection(name, 0, path, r.ContentQuery, r.ChildrenFilter); err != nil {
		return nil, err
	}

	req := collectionRequest(serverURL, path, &r.EntityOptions, &r.QueryOptions, r.params)
	req.IsCollectionRequest = false
	req.ActionName = r.OperationName
	req.PostData = r.PostData
	req.ContentQuery = r.ContentQuery
	req.Filter = r.ChildrenFilter

	// An id is the effective address once the path placeholder is no
	// longer needed.
	if r.ContentID > 0 {
		req.ContentID = r.ContentID
		req.Path = ""
	}

	return validated(req)
}

// UploadRequest describes a file upload into a container.
type UploadRequest struct {
	ParentPath   string
	ParentID     int
	ContentName  string
	ContentType  string
	FileName     string
	PropertyName string
	Overwrite    bool
	// ChunkSize bounds the size of one upload chunk. Zero selects the
	// default.
	ChunkSize int

	params *ParameterBag
}

// Parameters implements Request. Upload requests recognize no well-known
// keys.
func (r *UploadRequest) Parameters() *ParameterBag {
	if r.params == nil {
		r.params = bindParameters()
	}

	return r.params
}

// ToODataRequest implements Request. The canonical request targets the
// parent container.
func (r *UploadRequest) ToODataRequest(serverURL string) (*ODataRequest, error) {
	const name = "UploadRequest"

	switch {
	case r.ParentID > 0 && r.ParentPath != "":
		return nil, exclusive(name, "ParentPath", "ParentID")
	case r.ParentID <= 0 && r.ParentPath == "":
		return nil, missing(name, "ParentPath", "ParentID")
	case r.ContentName == "":
		return nil, missing(name, "ContentName")
	}

	req := &ODataRequest{
		ServerURL:  serverURL,
		ContentID:  r.ParentID,
		Path:       NormalizePath(r.ParentPath),
		ActionName: constants.UploadActionName,
		Parameters: passThrough(r.params),
	}

	return validated(req)
}

// EffectiveFileName returns FileName, falling back to ContentName.
func (r *UploadRequest) EffectiveFileName() string {
	if r.FileName != "" {
		return r.FileName
	}

	return r.ContentName
}

// EffectivePropertyName returns the binary field the upload targets.
func (r *UploadRequest) EffectivePropertyName() string {
	if r.PropertyName != "" {
		return r.PropertyName
	}

	return constants.DefaultBinaryPropertyName
}

// EffectiveChunkSize returns ChunkSize or the default chunk size.
func (r *UploadRequest) EffectiveChunkSize() int {
	if r.ChunkSize > 0 {
		return r.ChunkSize
	}

	return constants.DefaultUploadChunkSize
}

func collectionTable(query, filter *string) paramTable {
	return paramTable{
		ParamQuery:  stringParam(query),
		ParamFilter: stringParam(filter),
	}
}

func checkTarget(name string, id int, path string) error {
	switch {
	case id > 0 && path != "":
		return exclusive(name, "ContentID", "Path")
	case id <= 0 && path == "":
		return missing(name, "ContentID", "Path")
	}

	return nil
}

func checkCollection(name string, id int, path, query, filter string) error {
	switch {
	case id > 0 && path != "":
		return exclusive(name, "ContentID", "Path")
	case path == "":
		return missing(name, "Path")
	case query != "" && filter != "":
		return exclusive(name, "ContentQuery", "ChildrenFilter")
	}

	return nil
}

func collectionRequest(serverURL, path string, entity *EntityOptions, query *QueryOptions, bag *ParameterBag) *ODataRequest {
	req := &ODataRequest{
		ServerURL:           serverURL,
		Path:                NormalizePath(path),
		IsCollectionRequest: true,
		Parameters:          passThrough(bag),
	}
	entity.applyTo(req)
	query.applyTo(req)

	return req
}

func validated(req *ODataRequest) (*ODataRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}
