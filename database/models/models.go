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

package models

// MigrateModels is the list of models to migrate at store startup
var MigrateModels = []any{
	&Collection{},
	&Item{},
}

// Collection is the persisted snapshot of a collection aggregate. The live
// aggregate is authoritative; rows here are refreshed after each committed
// mutation
type Collection struct {
	ID              uint   `gorm:"primarykey"`
	CollectionId    string `gorm:"uniqueIndex;size:36"`
	Name            string `gorm:"index"`
	Symbol          string
	Description     string
	Creator         string `gorm:"index"`
	RoyaltyPercent  uint8
	Price           uint64
	MintStart       int64
	MintEnd         int64
	RevealTime      int64
	MaxSupply       uint64
	Supply          uint64
	TreasuryBalance uint64
	Paused          bool
	Upgradable      bool
	Version         uint64
	TimeLock        int64
}

func (Collection) TableName() string {
	return "collection"
}

// Item is a persisted minted collectible
type Item struct {
	ID           uint   `gorm:"primarykey"`
	ItemId       string `gorm:"uniqueIndex;size:36"`
	CollectionId string `gorm:"index;size:36"`
	Name         string
	Description  string
	Url          string
	Creator      string
	Owner        string `gorm:"index"`
	Revealed     bool
	RevealTime   int64
}

func (Item) TableName() string {
	return "item"
}
