// Copyright 2025 Poiesic Systems
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

package storage

import (
	"fmt"

	"github.com/poiesic/nameres/core"
)

// MarshalPayload serializes a Payload to bytes.
func MarshalPayload(payload *core.Payload) []byte {
	buf := make([]byte, core.PayloadMUS.Size(*payload))
	core.PayloadMUS.Marshal(*payload, buf)
	return buf
}

// UnmarshalPayload deserializes a Payload from bytes.
func UnmarshalPayload(data []byte) (*core.Payload, error) {
	payload, _, err := core.PayloadMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrSerializationFailed, err)
	}
	return &payload, nil
}

// MarshalPointRef serializes a PointRef to bytes.
func MarshalPointRef(ref *core.PointRef) []byte {
	buf := make([]byte, core.PointRefMUS.Size(*ref))
	core.PointRefMUS.Marshal(*ref, buf)
	return buf
}

// UnmarshalPointRef deserializes a PointRef from bytes.
func UnmarshalPointRef(data []byte) (*core.PointRef, error) {
	ref, _, err := core.PointRefMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: point: %w", ErrSerializationFailed, err)
	}
	return &ref, nil
}

// MarshalCollectionInfo serializes a CollectionInfo to bytes.
func MarshalCollectionInfo(info *core.CollectionInfo) []byte {
	buf := make([]byte, core.CollectionInfoMUS.Size(*info))
	core.CollectionInfoMUS.Marshal(*info, buf)
	return buf
}

// UnmarshalCollectionInfo deserializes a CollectionInfo from bytes.
func UnmarshalCollectionInfo(data []byte) (*core.CollectionInfo, error) {
	info, _, err := core.CollectionInfoMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: collection: %w", ErrSerializationFailed, err)
	}
	return &info, nil
}
