// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package collection

import (
	"github.com/google/uuid"
)

// Item is a single collectible produced by a successful mint. Items are
// created hidden and revealed by anyone once the reveal time is reached;
// they are never destroyed
type Item struct {
	ID           uuid.UUID
	CollectionID uuid.UUID
	Name         string
	Description  string
	Url          string
	Creator      Address
	Owner        Address
	Revealed     bool
	// RevealTime is copied from the collection reveal timestamp at mint
	RevealTime int64
	attributes map[string]string
}

// SetAttribute stores a free-form key/value pair on the item. Length caps
// are enforced here, at the point of mutation
func (i *Item) SetAttribute(key, value string) error {
	if key == "" || len(key) > MaxAttributeKeyLen ||
		len(value) > MaxAttributeValueLen {
		return ErrInvalidAttribute
	}
	if i.attributes == nil {
		i.attributes = make(map[string]string)
	}
	i.attributes[key] = value
	return nil
}

// Attribute returns the value stored under key, if any
func (i *Item) Attribute(key string) (string, bool) {
	value, ok := i.attributes[key]
	return value, ok
}

// clone returns a deep copy of the item. Callers must hold the owning
// collection's mutex while the copy is taken
func (i *Item) clone() *Item {
	ret := *i
	ret.attributes = make(map[string]string, len(i.attributes))
	for k, v := range i.attributes {
		ret.attributes[k] = v
	}
	return &ret
}

// Attributes returns a copy of the item's attribute set
func (i *Item) Attributes() map[string]string {
	ret := make(map[string]string, len(i.attributes))
	for k, v := range i.attributes {
		ret[k] = v
	}
	return ret
}
