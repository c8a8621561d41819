package resources

import (
	"context"

	"github.com/rescale-labs/pcloud-engine/internal/pcloudapi"
)

// AccountInfoClient is the narrow interface resources needs from
// pcloudapi.Client: just enough to read quota usage, so a caller can
// pre-flight a sync without this package owning the credential store.
type AccountInfoClient interface {
	AccountInfo(ctx context.Context) (*pcloudapi.AccountInfo, error)
}

// AccountQuota reports an account's used and total quota in bytes, plus the
// remaining headroom, as reported by the pCloud API's userinfo call (§4.1
// "account info").
type AccountQuota struct {
	UsedBytes      int64
	TotalBytes     int64
	AvailableBytes int64
}

// QueryAccountQuota returns the authenticated account's quota usage via
// client, so a caller (e.g. a sync driver) can check there is enough remote
// headroom before starting a large upload batch, without this package
// owning the credential store itself.
func QueryAccountQuota(ctx context.Context, client AccountInfoClient) (AccountQuota, error) {
	info, err := client.AccountInfo(ctx)
	if err != nil {
		return AccountQuota{}, err
	}
	available := info.Quota - info.UsedQuota
	if available < 0 {
		available = 0
	}
	return AccountQuota{
		UsedBytes:      info.UsedQuota,
		TotalBytes:     info.Quota,
		AvailableBytes: available,
	}, nil
}
