package pcloudapi

import "encoding/json"

// FileItem is a single entry in a remote folder listing. Unknown fields from
// the remote are captured in Extra rather than rejected — the remote evolves
// and new fields must never cause a decode failure (§4.1, §9).
type FileItem struct {
	Name     string `json:"name"`
	IsFolder bool   `json:"isfolder"`
	Size     int64  `json:"size"`
	// Modified is an opaque timestamp string. It is never parsed numerically
	// here; a caller needing ordering should parse it in a dedicated helper
	// (§9 "Dynamic date fields").
	Modified string `json:"modified,omitempty"`
	FileID   string `json:"fileid,omitempty"`
	FolderID string `json:"folderid,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// rawFileItem mirrors FileItem's known fields so UnmarshalJSON can decode
// twice: once into the typed struct, once into a generic map to recover
// anything not already named above.
type rawFileItem struct {
	Name     string `json:"name"`
	IsFolder bool   `json:"isfolder"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
	FileID   json.Number `json:"fileid"`
	FolderID json.Number `json:"folderid"`
}

func (f *FileItem) UnmarshalJSON(data []byte) error {
	var raw rawFileItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Name = raw.Name
	f.IsFolder = raw.IsFolder
	f.Size = raw.Size
	f.Modified = raw.Modified
	f.FileID = raw.FileID.String()
	f.FolderID = raw.FolderID.String()

	var extra map[string]json.RawMessage
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	for _, known := range []string{"name", "isfolder", "size", "modified", "fileid", "folderid"} {
		delete(extra, known)
	}
	f.Extra = extra
	return nil
}

// listFolderResult is the decoded shape of a /listfolder response.
type listFolderResult struct {
	baseResult
	Metadata struct {
		Name     string     `json:"name"`
		IsFolder bool       `json:"isfolder"`
		Contents []FileItem `json:"contents"`
	} `json:"metadata"`
}

// baseResult carries the fields present on every pCloud response.
type baseResult struct {
	Result int    `json:"result"`
	Error  string `json:"error"`

	Extra map[string]json.RawMessage `json:"-"`
}

// captureExtra records the response's unknown top-level keys in Extra. It is
// called by Client.call after the normal decode; it is deliberately not named
// UnmarshalJSON, since that method would be promoted to every result type
// embedding baseResult and stop their own fields from being decoded.
func (b *baseResult) captureExtra(data []byte) error {
	type alias struct {
		Result int    `json:"result"`
		Error  string `json:"error"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	b.Result = a.Result
	b.Error = a.Error

	var extra map[string]json.RawMessage
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	delete(extra, "result")
	delete(extra, "error")
	b.Extra = extra
	return nil
}

// uploadFileResult is the decoded shape of /uploadfile and /upload_save.
type uploadFileResult struct {
	baseResult
	Items []FileItem `json:"metadata"`
}

// beginUploadResult is the decoded shape of /upload_create.
type beginUploadResult struct {
	baseResult
	UploadID int64 `json:"uploadid"`
}

// getFileLinkResult is the decoded shape of /getfilelink.
type getFileLinkResult struct {
	baseResult
	Hosts []string `json:"hosts"`
	Path  string   `json:"path"`
}

// userInfoResult is the decoded shape of /userinfo.
type userInfoResult struct {
	baseResult
	Email      string `json:"email"`
	UserID     int64  `json:"userid"`
	Quota      int64  `json:"quota"`
	UsedQuota  int64  `json:"usedquota"`
	Auth       string `json:"auth"`
}
