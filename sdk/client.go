package sdk

import (
	"errors"
	"fmt"

	"github.com/deedlabs/deedmarket/schema"
	"gopkg.in/h2non/gentleman.v2"
)

// Client is a thin HTTP client over the deedmarket API. Admin operations take
// the administrator address for the auth header; public operations carry the
// caller and its allow-list proof in the request body.
type Client struct {
	SCli *gentleman.Client
}

func New(deedUrl string) *Client {
	return &Client{
		SCli: gentleman.New().URL(deedUrl),
	}
}

func (c *Client) Mint(admin string, req schema.MintReq) (uint64, error) {
	res := schema.RespPropertyID{}
	if err := c.postJSON("/admin/ledger/mint", admin, req, &res); err != nil {
		return 0, err
	}
	return res.PropertyID, nil
}

func (c *Client) MintBatch(admin string, req schema.MintBatchReq) (uint64, error) {
	res := schema.RespPropertyID{}
	if err := c.postJSON("/admin/ledger/mint_batch", admin, req, &res); err != nil {
		return 0, err
	}
	return res.PropertyID, nil
}

func (c *Client) SetOffsetLock(admin string, propertyId uint64, locked bool) error {
	return c.postJSON(fmt.Sprintf("/admin/ledger/lock/%d", propertyId), admin, schema.LockReq{Locked: locked}, nil)
}

func (c *Client) SetURI(admin string, propertyId uint64, uri string) error {
	return c.postJSON(fmt.Sprintf("/admin/ledger/uri/%d", propertyId), admin, schema.URIReq{URI: uri}, nil)
}

func (c *Client) SetPaused(admin string, paused bool) error {
	return c.postJSON("/admin/ledger/pause", admin, schema.PauseReq{Paused: paused}, nil)
}

func (c *Client) SetAllowRoot(admin string, root string) error {
	return c.postJSON("/admin/allowlist/root", admin, schema.RootReq{Root: root}, nil)
}

func (c *Client) Transfer(req schema.TransferReq) error {
	return c.postJSON("/ledger/transfer", "", req, nil)
}

func (c *Client) List(req schema.ListReq) (uint64, error) {
	res := schema.RespListingID{}
	if err := c.postJSON("/market/list", "", req, &res); err != nil {
		return 0, err
	}
	return res.ListingID, nil
}

func (c *Client) Buy(req schema.BuyReq) (schema.TradeReceipt, error) {
	receipt := schema.TradeReceipt{}
	err := c.postJSON("/market/buy", "", req, &receipt)
	return receipt, err
}

func (c *Client) Delist(req schema.DelistReq) error {
	return c.postJSON("/market/delist", "", req, nil)
}

func (c *Client) GetProperty(propertyId uint64) (schema.PropertyMeta, error) {
	meta := schema.PropertyMeta{}
	err := c.getJSON(fmt.Sprintf("/ledger/property/%d", propertyId), &meta)
	return meta, err
}

func (c *Client) GetSupply(propertyId uint64) (schema.RespSupply, error) {
	res := schema.RespSupply{}
	err := c.getJSON(fmt.Sprintf("/ledger/supply/%d", propertyId), &res)
	return res, err
}

func (c *Client) GetBalance(propertyId uint64, owner string) (schema.RespBalance, error) {
	res := schema.RespBalance{}
	err := c.getJSON(fmt.Sprintf("/ledger/balance/%d/%s", propertyId, owner), &res)
	return res, err
}

func (c *Client) GetListing(listingId uint64) (schema.Listing, error) {
	lst := schema.Listing{}
	err := c.getJSON(fmt.Sprintf("/market/listing/%d", listingId), &lst)
	return lst, err
}

func (c *Client) GetListingsBySeller(seller string, cursorId int64) ([]schema.ListingRecord, error) {
	records := make([]schema.ListingRecord, 0)
	err := c.getJSON(fmt.Sprintf("/market/listings/%s?cursorId=%d", seller, cursorId), &records)
	return records, err
}

func (c *Client) GetTotals() (uint64, error) {
	res := schema.RespTotals{}
	err := c.getJSON("/market/totals", &res)
	return res.Totals, err
}

func (c *Client) GetAllowRoot() (string, error) {
	res := schema.RespRoot{}
	err := c.getJSON("/allowlist/root", &res)
	return res.Root, err
}

func (c *Client) GetInfo() (schema.RespInfo, error) {
	res := schema.RespInfo{}
	err := c.getJSON("/info", &res)
	return res, err
}

func (c *Client) postJSON(path string, admin string, body interface{}, out interface{}) error {
	req := c.SCli.Post()
	req.AddPath(path)
	if len(admin) > 0 {
		req.SetHeader("X-Admin-Address", admin)
	}
	req.JSON(body)
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}

func (c *Client) getJSON(path string, out interface{}) error {
	req := c.SCli.Get()
	req.AddPath(path)
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	return resp.JSON(out)
}
