package cdpcontrol

import (
	"context"
	"fmt"
)

// ExtensionInfo describes the helper extension the client evaluates in.
type ExtensionInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Permissions []string `json:"permissions"`
}

func (c *Client) ExtensionInfo(ctx context.Context) (ExtensionInfo, error) {
	var out ExtensionInfo
	if err := c.evalOnWorker(ctx, jsExtensionInfo(), &out); err != nil {
		return ExtensionInfo{}, err
	}
	return out, nil
}

// ListTabs returns every tab of every normal window, ordered by window and index.
func (c *Client) ListTabs(ctx context.Context) ([]Tab, error) {
	var out struct {
		Tabs []Tab `json:"tabs"`
	}
	if err := c.evalOnWorker(ctx, jsListTabs(), &out); err != nil {
		return nil, err
	}
	if out.Tabs == nil {
		return []Tab{}, nil
	}
	return out.Tabs, nil
}

// GroupTabs adds tabs to groupID, or to a new group in windowID when groupID is negative.
// It returns the id of the group the tabs ended up in.
func (c *Client) GroupTabs(ctx context.Context, tabIDs []int, groupID, windowID int) (int, error) {
	if len(tabIDs) == 0 {
		return 0, newError(CodeValidation, "tab ids are required", nil)
	}
	var out struct {
		GroupID int `json:"group_id"`
	}
	if err := c.evalOnWorker(ctx, jsGroupTabs(tabIDs, groupID, windowID), &out); err != nil {
		return 0, err
	}
	return out.GroupID, nil
}

func (c *Client) UngroupTabs(ctx context.Context, tabIDs []int) error {
	if len(tabIDs) == 0 {
		return nil
	}
	return c.evalOnWorker(ctx, jsUngroupTabs(tabIDs), nil)
}

func (c *Client) GetGroup(ctx context.Context, groupID int) (TabGroup, error) {
	if groupID < 0 {
		return TabGroup{}, newError(CodeValidation, fmt.Sprintf("invalid group id %d", groupID), nil)
	}
	var out TabGroup
	if err := c.evalOnWorker(ctx, jsGetGroup(groupID), &out); err != nil {
		return TabGroup{}, err
	}
	return out, nil
}

// UpdateGroup sets the title and color of a group.
func (c *Client) UpdateGroup(ctx context.Context, groupID int, title, color string) error {
	if groupID < 0 {
		return newError(CodeValidation, fmt.Sprintf("invalid group id %d", groupID), nil)
	}
	return c.evalOnWorker(ctx, jsUpdateGroup(groupID, title, color), nil)
}

func (c *Client) MoveGroup(ctx context.Context, groupID, index int) error {
	return c.evalOnWorker(ctx, jsMoveGroup(groupID, index), nil)
}

func (c *Client) MoveTab(ctx context.Context, tabID, index int) error {
	return c.evalOnWorker(ctx, jsMoveTab(tabID, index), nil)
}

func jsExtensionInfo() string {
	return wrapJSEval(`var m = chrome.runtime.getManifest();
return JSON.stringify({ok:true,data:{id:chrome.runtime.id,name:m.name||"",version:m.version||"",permissions:m.permissions||[]}});`)
}

func jsListTabs() string {
	return wrapJSEvalAsync(`var tabs = await chrome.tabs.query({windowType:"normal"});
tabs.sort(function(a, b) { return a.windowId - b.windowId || a.index - b.index; });
var out = tabs.map(function(t) {
  return {id:t.id,window_id:t.windowId,index:t.index,group_id:t.groupId,pinned:!!t.pinned,active:!!t.active,url:t.url||"",pending_url:t.pendingUrl||"",title:t.title||""};
});
return JSON.stringify({ok:true,data:{tabs:out}});`)
}

func jsGroupTabs(tabIDs []int, groupID, windowID int) string {
	opts := "{tabIds:" + jsJSON(tabIDs)
	if groupID >= 0 {
		opts += ",groupId:" + jsJSON(groupID)
	} else {
		opts += ",createProperties:{windowId:" + jsJSON(windowID) + "}"
	}
	opts += "}"
	return wrapJSEvalAsync(`var id = await chrome.tabs.group(` + opts + `);
return JSON.stringify({ok:true,data:{group_id:id}});`)
}

func jsUngroupTabs(tabIDs []int) string {
	return wrapJSEvalAsync(`await chrome.tabs.ungroup(` + jsJSON(tabIDs) + `);
return JSON.stringify({ok:true});`)
}

func jsGetGroup(groupID int) string {
	return wrapJSEvalAsync(`var g = await chrome.tabGroups.get(` + jsJSON(groupID) + `);
return JSON.stringify({ok:true,data:{id:g.id,window_id:g.windowId,title:g.title||"",color:g.color||"",collapsed:!!g.collapsed}});`)
}

func jsUpdateGroup(groupID int, title, color string) string {
	props := jsJSON(map[string]string{"title": title, "color": color})
	return wrapJSEvalAsync(`await chrome.tabGroups.update(` + jsJSON(groupID) + `, ` + props + `);
return JSON.stringify({ok:true});`)
}

func jsMoveGroup(groupID, index int) string {
	return wrapJSEvalAsync(`await chrome.tabGroups.move(` + jsJSON(groupID) + `, {index:` + jsJSON(index) + `});
return JSON.stringify({ok:true});`)
}

func jsMoveTab(tabID, index int) string {
	return wrapJSEvalAsync(`await chrome.tabs.move(` + jsJSON(tabID) + `, {index:` + jsJSON(index) + `});
return JSON.stringify({ok:true});`)
}
