// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package change

import (
	"github.com/ldoc/ldoc/columnar"
	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/opset"
	"github.com/ldoc/ldoc/value"
)

// compact action codes (spec §4.4).
const (
	actionMakeKeyed = 0 // make_map / make_table
	actionPut       = 1 // put, insert, splice_text (disambiguated by the insert flag + value)
	actionMakeSeq   = 2 // make_list / make_text
	actionDel       = 3
	actionIncrement = 4
	actionMark      = 5
)

// ObjIsSequence reports whether an object id names a sequence (list/text)
// container. Encoding needs this to know whether an op's target is
// addressed by RGA anchor or by map key (spec §4.4).
type ObjIsSequence func(docid.ObjId) bool

// EncodeOpColumns lays out ops as the column set of spec §4.4, resolving
// actor references against table (which may grow as new actors are seen).
func EncodeOpColumns(ops []opset.Op, table *ActorTable, isSeq ObjIsSequence) []columnar.Column {
	objActor := columnar.NewRLEEncoder(columnar.RLEUint)
	objCounter := columnar.NewDeltaEncoder()
	keyActor := columnar.NewRLEEncoder(columnar.RLEUint)
	keyCounter := columnar.NewDeltaEncoder()
	keyString := columnar.NewRLEEncoder(columnar.RLEString)
	insert := columnar.NewBooleanEncoder()
	action := columnar.NewRLEEncoder(columnar.RLEUint)
	valuePair := columnar.NewValuePairEncoder()
	predGroup := columnar.NewRLEEncoder(columnar.RLEUint)
	predActor := columnar.NewRLEEncoder(columnar.RLEUint)
	predCounter := columnar.NewDeltaEncoder()
	expand := columnar.NewBooleanEncoder()
	markName := columnar.NewRLEEncoder(columnar.RLEString)

	for _, op := range ops {
		if docid.IsRoot(op.Obj) {
			objActor.AppendNull()
			objCounter.Append(0)
		} else {
			objActor.AppendUint(uint64(table.Index(op.Obj.Actor)))
			objCounter.Append(int64(op.Obj.Counter))
		}

		seqTarget := op.Action == opset.ActionInsert || op.Action == opset.ActionSpliceText ||
			op.Action == opset.ActionMark || isSeq(op.Obj)
		isInsert := op.Action == opset.ActionInsert || op.Action == opset.ActionSpliceText ||
			(op.Action == opset.ActionMakeObject && op.InsertAfter != nil)

		if seqTarget {
			keyString.AppendNull()
			var anchor *docid.OpId
			if isInsert {
				anchor = op.InsertAfter
			} else if len(op.Pred) > 0 {
				anchor = &op.Pred[0]
			}
			if anchor == nil {
				keyActor.AppendNull()
				keyCounter.AppendNull()
			} else {
				keyActor.AppendUint(uint64(table.Index(anchor.Actor)))
				keyCounter.Append(int64(anchor.Counter))
			}
		} else {
			keyActor.AppendNull()
			keyCounter.AppendNull()
			keyString.AppendString(op.Key.Key)
		}

		insert.Append(isInsert)

		switch op.Action {
		case opset.ActionMakeObject:
			if op.Value.ObjType.IsSequence() {
				action.AppendUint(actionMakeSeq)
			} else {
				action.AppendUint(actionMakeKeyed)
			}
		case opset.ActionPut, opset.ActionInsert, opset.ActionSpliceText:
			action.AppendUint(actionPut)
		case opset.ActionDel:
			action.AppendUint(actionDel)
		case opset.ActionIncrement:
			action.AppendUint(actionIncrement)
		case opset.ActionMark:
			action.AppendUint(actionMark)
		}

		valuePair.AppendValue(op.Value)

		predGroup.AppendUint(uint64(len(op.Pred)))
		for _, p := range op.Pred {
			predActor.AppendUint(uint64(table.Index(p.Actor)))
			predCounter.Append(int64(p.Counter))
		}

		expand.Append(op.Action == opset.ActionMark)
		if op.Action == opset.ActionMark {
			markName.AppendString(op.MarkName)
		} else {
			markName.AppendNull()
		}
	}

	return []columnar.Column{
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDObjActor, Type: columnar.ColActorRLE}, Body: objActor.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDObjCounter, Type: columnar.ColDeltaInt}, Body: objCounter.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDKeyActor, Type: columnar.ColActorRLE}, Body: keyActor.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDKeyCounter, Type: columnar.ColDeltaInt}, Body: keyCounter.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDKeyString, Type: columnar.ColStringRLE}, Body: keyString.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDInsert, Type: columnar.ColBoolean}, Body: insert.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDAction, Type: columnar.ColIntegerRLE}, Body: action.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDValueMeta, Type: columnar.ColValueMeta}, Body: valuePair.Meta},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDValueRaw, Type: columnar.ColValueRaw}, Body: valuePair.Raw},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDPredGroup, Type: columnar.ColGroupCard}, Body: predGroup.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDPredActor, Type: columnar.ColActorRLE}, Body: predActor.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDPredCounter, Type: columnar.ColDeltaInt}, Body: predCounter.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDExpand, Type: columnar.ColBoolean}, Body: expand.Finish()},
		{Spec: columnar.ColumnSpec{ColumnID: columnar.ColIDMarkName, Type: columnar.ColStringRLE}, Body: markName.Finish()},
	}
}

// DecodeOpColumns reverses EncodeOpColumns. count is the number of ops to
// decode (the change's operation count, stored outside the column table).
// OpIds reconstruct as (startOp+i, changeActor) (spec §4.4).
func DecodeOpColumns(cols []columnar.Column, count int, table *ActorTable, startOp uint64, changeActor docid.ActorId) ([]opset.Op, error) {
	objActorCol, _ := columnar.Find(cols, columnar.ColIDObjActor, columnar.ColActorRLE)
	objCounterCol, _ := columnar.Find(cols, columnar.ColIDObjCounter, columnar.ColDeltaInt)
	keyActorCol, _ := columnar.Find(cols, columnar.ColIDKeyActor, columnar.ColActorRLE)
	keyCounterCol, _ := columnar.Find(cols, columnar.ColIDKeyCounter, columnar.ColDeltaInt)
	keyStringCol, _ := columnar.Find(cols, columnar.ColIDKeyString, columnar.ColStringRLE)
	insertCol, _ := columnar.Find(cols, columnar.ColIDInsert, columnar.ColBoolean)
	actionCol, _ := columnar.Find(cols, columnar.ColIDAction, columnar.ColIntegerRLE)
	valueMetaCol, _ := columnar.Find(cols, columnar.ColIDValueMeta, columnar.ColValueMeta)
	valueRawCol, _ := columnar.Find(cols, columnar.ColIDValueRaw, columnar.ColValueRaw)
	predGroupCol, _ := columnar.Find(cols, columnar.ColIDPredGroup, columnar.ColGroupCard)
	predActorCol, _ := columnar.Find(cols, columnar.ColIDPredActor, columnar.ColActorRLE)
	predCounterCol, _ := columnar.Find(cols, columnar.ColIDPredCounter, columnar.ColDeltaInt)
	markNameCol, _ := columnar.Find(cols, columnar.ColIDMarkName, columnar.ColStringRLE)

	objActorDec := columnar.NewRLEDecoder(columnar.RLEUint, objActorCol.Body)
	objCounterDec := columnar.NewDeltaDecoder(objCounterCol.Body)
	keyActorDec := columnar.NewRLEDecoder(columnar.RLEUint, keyActorCol.Body)
	keyCounterDec := columnar.NewDeltaDecoder(keyCounterCol.Body)
	keyStringDec := columnar.NewRLEDecoder(columnar.RLEString, keyStringCol.Body)
	insertDec := columnar.NewBooleanDecoder(insertCol.Body)
	actionDec := columnar.NewRLEDecoder(columnar.RLEUint, actionCol.Body)
	predGroupDec := columnar.NewRLEDecoder(columnar.RLEUint, predGroupCol.Body)
	predActorDec := columnar.NewRLEDecoder(columnar.RLEUint, predActorCol.Body)
	predCounterDec := columnar.NewDeltaDecoder(predCounterCol.Body)
	markNameDec := columnar.NewRLEDecoder(columnar.RLEString, markNameCol.Body)

	metaPos, rawPos := 0, 0

	ops := make([]opset.Op, 0, count)
	for i := 0; i < count; i++ {
		id := docid.OpId{Counter: startOp + uint64(i), Actor: changeActor}

		objActorIdx, objActorNull, _, err := objActorDec.NextUint()
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "obj_actor")
		}
		objCounterVal, _, _, err := objCounterDec.Next()
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "obj_counter")
		}
		var obj docid.ObjId
		if objActorNull {
			obj = docid.Root
		} else {
			obj = docid.OpId{Counter: uint64(objCounterVal), Actor: table.At(uint32(objActorIdx))}
		}

		keyActorIdx, keyActorNull, _, err := keyActorDec.NextUint()
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "key_actor")
		}
		keyCounterVal, _, _, err := keyCounterDec.Next()
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "key_counter")
		}
		keyStr, keyStrNull, _, err := keyStringDec.NextString()
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "key_string")
		}

		isInsertFlag, _, err := insertDec.Next()
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "insert")
		}

		actionCode, _, _, err := actionDec.NextUint()
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "action")
		}

		v, newMeta, newRaw, err := columnar.DecodeValuePair(valueMetaCol.Body, metaPos, valueRawCol.Body, rawPos)
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "value")
		}
		metaPos, rawPos = newMeta, newRaw

		predCount, _, _, err := predGroupDec.NextUint()
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "pred_group")
		}
		pred := make([]docid.OpId, 0, predCount)
		for p := uint64(0); p < predCount; p++ {
			pa, _, _, err := predActorDec.NextUint()
			if err != nil {
				return nil, docerr.Wrap(docerr.KindDecoding, err, "pred_actor")
			}
			pc, _, _, err := predCounterDec.Next()
			if err != nil {
				return nil, docerr.Wrap(docerr.KindDecoding, err, "pred_counter")
			}
			pred = append(pred, docid.OpId{Counter: uint64(pc), Actor: table.At(uint32(pa))})
		}

		markName, markNameNull, _, err := markNameDec.NextString()
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "mark_name")
		}

		op := opset.Op{ID: id, Obj: obj, Value: v, Pred: pred}

		switch actionCode {
		case actionMakeKeyed, actionMakeSeq:
			op.Action = opset.ActionMakeObject
			op.Value = value.NewObject(columnar.DecodeObjTypeValue(v))
			if isInsertFlag {
				op.InsertAfter = anchorFrom(keyActorNull, keyActorIdx, keyCounterVal, table)
			} else if !keyStrNull {
				op.Key = docid.Key(keyStr)
			}
		case actionPut:
			if isInsertFlag {
				op.InsertAfter = anchorFrom(keyActorNull, keyActorIdx, keyCounterVal, table)
				if v.IsScalar() && v.Scalar.Kind == value.KindStr {
					// An insert whose value is a string is indistinguishable on
					// the wire from a splice_text character; reinterpret it as
					// one on decode (spec's insert/splice_text wire aliasing).
					op.Action = opset.ActionSpliceText
				} else {
					op.Action = opset.ActionInsert
				}
			} else {
				op.Action = opset.ActionPut
				if !keyStrNull {
					op.Key = docid.Key(keyStr)
				}
			}
		case actionDel:
			op.Action = opset.ActionDel
			if !keyStrNull {
				op.Key = docid.Key(keyStr)
			}
		case actionIncrement:
			op.Action = opset.ActionIncrement
			if !keyStrNull {
				op.Key = docid.Key(keyStr)
			}
		case actionMark:
			op.Action = opset.ActionMark
			if !markNameNull {
				op.MarkName = markName
			}
		default:
			return nil, docerr.New(docerr.KindDecoding, "unknown op action code")
		}

		ops = append(ops, op)
	}
	return ops, nil
}

func anchorFrom(null bool, actorIdx uint64, counter int64, table *ActorTable) *docid.OpId {
	if null {
		return nil
	}
	id := docid.OpId{Counter: uint64(counter), Actor: table.At(uint32(actorIdx))}
	return &id
}
